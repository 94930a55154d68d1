package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"medibook-server/internal/models"
	"medibook-server/internal/testutil"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type recordFixture struct {
	env      *testEnv
	doctor   *models.User
	patient  *models.User
	stranger *models.User
	appt     *models.Appointment
}

func newRecordFixture(t *testing.T, maxUpload int64) *recordFixture {
	env := newTestEnv(t)
	h := NewMedicalRecordHandler(env.db, maxUpload)
	env.router.POST("/medical-records", h.CreateMedicalRecord)
	env.router.GET("/medical-records/my-records", h.GetMyRecords)
	env.router.GET("/medical-records/patient/:patientId", h.GetPatientRecords)
	env.router.GET("/medical-records/attachments/:attachmentId", h.GetMedicalRecordAttachment)
	env.router.GET("/medical-records/:id", h.GetMedicalRecordByID)
	env.router.PUT("/medical-records/:id", h.UpdateMedicalRecord)
	env.router.DELETE("/medical-records/:id", h.DeleteMedicalRecord)
	env.router.POST("/medical-records/:id/attachments", h.UploadMedicalRecordAttachment)

	f := &recordFixture{
		env:      env,
		doctor:   testutil.CreateUser(t, env.db, "doc@example.com", models.RoleDoctor),
		patient:  testutil.CreateUser(t, env.db, "p@example.com", models.RolePatient),
		stranger: testutil.CreateUser(t, env.db, "other-doc@example.com", models.RoleDoctor),
	}
	appt, err := env.appointmentService().Book(t.Context(), f.patient.ID, bookInput(f.doctor.ID))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	f.appt = appt
	return f
}

func (f *recordFixture) createRecord(t *testing.T) models.MedicalRecord {
	t.Helper()
	var rec models.MedicalRecord
	expect(t, f.env.do(http.MethodPost, "/medical-records", f.doctor, map[string]any{
		"appointmentId": f.appt.ID,
		"diagnosis":     "Seasonal allergy",
		"prescription":  "Antihistamine",
		"vitalSigns":    map[string]any{"bloodPressure": "120/80", "heartRate": 72},
	}), http.StatusCreated, &rec)
	return rec
}

func (f *recordFixture) upload(t *testing.T, recordID string, as *models.User, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/medical-records/"+recordID+"/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return f.env.serve(req, as)
}

func TestMedicalRecords_CreateAndRead(t *testing.T) {
	f := newRecordFixture(t, 1<<20)
	rec := f.createRecord(t)

	if rec.PatientID != f.patient.ID || rec.DoctorID != f.doctor.ID {
		t.Fatalf("record parties = %s/%s", rec.PatientID, rec.DoctorID)
	}
	if hr := rec.VitalSigns.Data().HeartRate; hr == nil || *hr != 72 {
		t.Errorf("heart rate = %v", hr)
	}

	expect(t, f.env.do(http.MethodPost, "/medical-records", f.stranger, map[string]any{
		"appointmentId": f.appt.ID, "diagnosis": "x", "prescription": "y",
	}), http.StatusNotFound, nil)

	var mine []models.MedicalRecord
	expect(t, f.env.do(http.MethodGet, "/medical-records/my-records", f.patient, nil), http.StatusOK, &mine)
	if len(mine) != 1 || mine[0].Doctor == nil {
		t.Fatalf("my records = %+v", mine)
	}

	var forPatient []models.MedicalRecord
	expect(t, f.env.do(http.MethodGet, "/medical-records/patient/"+f.patient.ID, f.doctor, nil), http.StatusOK, &forPatient)
	if len(forPatient) != 1 {
		t.Errorf("doctor sees %d records, want 1", len(forPatient))
	}
	expect(t, f.env.do(http.MethodGet, "/medical-records/patient/"+f.patient.ID, f.stranger, nil), http.StatusOK, &forPatient)
	if len(forPatient) != 0 {
		t.Errorf("another doctor sees %d records, want 0", len(forPatient))
	}

	expect(t, f.env.do(http.MethodGet, "/medical-records/"+rec.ID, f.patient, nil), http.StatusOK, nil)
	expect(t, f.env.do(http.MethodGet, "/medical-records/"+rec.ID, f.stranger, nil), http.StatusForbidden, nil)
	expect(t, f.env.do(http.MethodGet, "/medical-records/missing", f.patient, nil), http.StatusNotFound, nil)
}

func TestMedicalRecords_UpdateAndDelete(t *testing.T) {
	f := newRecordFixture(t, 1<<20)
	rec := f.createRecord(t)
	path := "/medical-records/" + rec.ID

	expect(t, f.env.do(http.MethodPut, path, f.stranger, map[string]any{"notes": "nope"}), http.StatusNotFound, nil)

	var updated models.MedicalRecord
	expect(t, f.env.do(http.MethodPut, path, f.doctor, map[string]any{"notes": "Follow up in 2 weeks"}), http.StatusOK, &updated)
	if updated.Notes != "Follow up in 2 weeks" || updated.Diagnosis != "Seasonal allergy" {
		t.Errorf("updated = %+v", updated)
	}

	expect(t, f.upload(t, rec.ID, f.doctor, "scan.png", pngHeader), http.StatusCreated, nil)
	expect(t, f.env.do(http.MethodDelete, path, f.stranger, nil), http.StatusNotFound, nil)
	expect(t, f.env.do(http.MethodDelete, path, f.doctor, nil), http.StatusOK, nil)

	var attachments int64
	f.env.db.Model(&models.MedicalRecordAttachment{}).Count(&attachments)
	if attachments != 0 {
		t.Errorf("attachments left after delete = %d", attachments)
	}
}

func TestMedicalRecords_Attachments(t *testing.T) {
	f := newRecordFixture(t, 64)
	rec := f.createRecord(t)

	var info AttachmentInfo
	expect(t, f.upload(t, rec.ID, f.doctor, "xray.txt", pngHeader), http.StatusCreated, &info)
	if info.FileType != "image/png" {
		t.Errorf("file type = %q, want sniffed image/png", info.FileType)
	}
	if info.Size != int64(len(pngHeader)) || info.FileName != "xray.txt" {
		t.Errorf("info = %+v", info)
	}

	expect(t, f.upload(t, rec.ID, f.stranger, "x.png", pngHeader), http.StatusNotFound, nil)
	expect(t, f.upload(t, rec.ID, f.doctor, "big.bin", bytes.Repeat([]byte{1}, 65)), http.StatusBadRequest, nil)
	expect(t, f.upload(t, rec.ID, f.doctor, "empty.bin", nil), http.StatusBadRequest, nil)

	w := f.env.do(http.MethodGet, "/medical-records/attachments/"+info.ID, f.patient, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), pngHeader) {
		t.Error("downloaded bytes differ from the upload")
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="xray.txt"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	expect(t, f.env.do(http.MethodGet, "/medical-records/attachments/"+info.ID, f.stranger, nil), http.StatusForbidden, nil)
	expect(t, f.env.do(http.MethodGet, "/medical-records/attachments/missing", f.patient, nil), http.StatusNotFound, nil)
}
