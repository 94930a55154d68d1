package handlers

import (
	"math"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medibook-server/internal/models"
	"medibook-server/internal/utils"
)

// AnalyticsHandler serves the dashboard statistics of each role.
type AnalyticsHandler struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(db *gorm.DB) *AnalyticsHandler {
	return &AnalyticsHandler{DB: db, Now: time.Now}
}

// StatusCount is the number of appointments in one status.
type StatusCount struct {
	Status models.AppointmentStatus `json:"status"`
	Count  int64                    `json:"count"`
}

// MonthCount is the number of appointments dated in one calendar month.
type MonthCount struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Count int64 `json:"count"`
}

// DoctorAnalytics is the payload of GET /analytics/doctor.
type DoctorAnalytics struct {
	TotalAppointments     int64                `json:"totalAppointments"`
	AppointmentsByStatus  []StatusCount        `json:"appointmentsByStatus"`
	RecentAppointments    []models.Appointment `json:"recentAppointments"`
	AvgRating             float64              `json:"avgRating"`
	TotalReviews          int64                `json:"totalReviews"`
	MonthlyAppointments   []MonthCount         `json:"monthlyAppointments"`
	CompletedAppointments int64                `json:"completedAppointments"`
	EstimatedRevenue      float64              `json:"estimatedRevenue"`
}

// PatientAnalytics is the payload of GET /analytics/patient.
type PatientAnalytics struct {
	TotalAppointments     int64                `json:"totalAppointments"`
	AppointmentsByStatus  []StatusCount        `json:"appointmentsByStatus"`
	UpcomingAppointments  []models.Appointment `json:"upcomingAppointments"`
	DoctorsVisited        int64                `json:"doctorsVisited"`
	CompletedAppointments int64                `json:"completedAppointments"`
	TotalSpent            float64              `json:"totalSpent"`
}

// AdminAnalytics is the payload of GET /analytics/admin.
type AdminAnalytics struct {
	TotalPatients        int64                  `json:"totalPatients"`
	TotalDoctors         int64                  `json:"totalDoctors"`
	TotalAppointments    int64                  `json:"totalAppointments"`
	AppointmentsByStatus []StatusCount          `json:"appointmentsByStatus"`
	RecentUsers          []models.UserSanitized `json:"recentUsers"`
	TopDoctors           []models.DoctorProfile `json:"topDoctors"`
}

// GetDoctorAnalytics handles GET /analytics/doctor.
func (h *AnalyticsHandler) GetDoctorAnalytics(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	out, err := h.doctorStats(h.DB.WithContext(c.Request.Context()), doctorID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Doctor analytics fetched successfully", out)
}

func (h *AnalyticsHandler) doctorStats(db *gorm.DB, doctorID string) (DoctorAnalytics, error) {
	var out DoctorAnalytics
	scoped := func() *gorm.DB { return db.Model(&models.Appointment{}).Where("doctor_id = ?", doctorID) }

	if err := scoped().Count(&out.TotalAppointments).Error; err != nil {
		return out, err
	}
	if err := scoped().Where("status = ?", models.StatusCompleted).Count(&out.CompletedAppointments).Error; err != nil {
		return out, err
	}
	byStatus, err := countByStatus(scoped())
	if err != nil {
		return out, err
	}
	out.AppointmentsByStatus = byStatus

	if err := db.Preload("Patient").
		Where("doctor_id = ?", doctorID).
		Order("date desc").Limit(10).
		Find(&out.RecentAppointments).Error; err != nil {
		return out, err
	}

	var rating struct {
		Avg   float64
		Total int64
	}
	if err := db.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS total").
		Where("doctor_id = ?", doctorID).
		Scan(&rating).Error; err != nil {
		return out, err
	}
	out.AvgRating = math.Round(rating.Avg*10) / 10
	out.TotalReviews = rating.Total

	since := h.Now().UTC().AddDate(0, -6, 0)
	var dates []time.Time
	if err := scoped().Where("date >= ?", models.NormalizeDate(since)).Pluck("date", &dates).Error; err != nil {
		return out, err
	}
	out.MonthlyAppointments = countByMonth(dates)

	var fee float64
	if err := db.Model(&models.DoctorProfile{}).
		Select("COALESCE(MAX(consultation_fee), 0)").
		Where("user_id = ?", doctorID).
		Scan(&fee).Error; err != nil {
		return out, err
	}
	out.EstimatedRevenue = float64(out.CompletedAppointments) * fee
	return out, nil
}

// GetPatientAnalytics handles GET /analytics/patient.
func (h *AnalyticsHandler) GetPatientAnalytics(c *gin.Context) {
	patientID, _, ok := caller(c)
	if !ok {
		return
	}

	var out PatientAnalytics
	db := h.DB.WithContext(c.Request.Context())
	scoped := func() *gorm.DB { return db.Model(&models.Appointment{}).Where("patient_id = ?", patientID) }
	completed := func() *gorm.DB { return scoped().Where("status = ?", models.StatusCompleted) }

	if err := scoped().Count(&out.TotalAppointments).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	byStatus, err := countByStatus(scoped())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	out.AppointmentsByStatus = byStatus

	today := models.NormalizeDate(h.Now().UTC())
	if err := db.Preload("Doctor").
		Where("patient_id = ? AND date >= ? AND status IN ?", patientID, today,
			[]models.AppointmentStatus{models.StatusPending, models.StatusConfirmed}).
		Order("date asc").Order("time_slot asc").Limit(5).
		Find(&out.UpcomingAppointments).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	if err := completed().Distinct("doctor_id").Count(&out.DoctorsVisited).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := completed().Count(&out.CompletedAppointments).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	if err := db.Table("appointments").
		Select("COALESCE(SUM(doctor_profiles.consultation_fee), 0)").
		Joins("JOIN doctor_profiles ON doctor_profiles.user_id = appointments.doctor_id").
		Where("appointments.patient_id = ? AND appointments.status = ?", patientID, models.StatusCompleted).
		Scan(&out.TotalSpent).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Patient analytics fetched successfully", out)
}

// GetAdminAnalytics handles GET /analytics/admin.
func (h *AnalyticsHandler) GetAdminAnalytics(c *gin.Context) {
	var out AdminAnalytics
	db := h.DB.WithContext(c.Request.Context())

	if err := db.Model(&models.User{}).Where("role = ?", models.RolePatient).Count(&out.TotalPatients).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleDoctor).Count(&out.TotalDoctors).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := db.Model(&models.Appointment{}).Count(&out.TotalAppointments).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	byStatus, err := countByStatus(db.Model(&models.Appointment{}))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	out.AppointmentsByStatus = byStatus

	var users []models.User
	if err := db.Order("created_at desc").Limit(10).Find(&users).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	out.RecentUsers = sanitizeAll(users)

	if err := db.Preload("User").Order("rating desc").Limit(5).Find(&out.TopDoctors).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Admin analytics fetched successfully", out)
}

func countByStatus(q *gorm.DB) ([]StatusCount, error) {
	counts := []StatusCount{}
	err := q.Select("status, COUNT(*) AS count").Group("status").Order("status").Scan(&counts).Error
	return counts, err
}

// countByMonth buckets dates by calendar month, oldest month first.
func countByMonth(dates []time.Time) []MonthCount {
	out := []MonthCount{}
	index := map[[2]int]int{}
	for _, d := range dates {
		key := [2]int{d.Year(), int(d.Month())}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, MonthCount{Year: key[0], Month: key[1]})
		}
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}
