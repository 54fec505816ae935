package submission_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-onboarding/pkg/model"
	"github.com/goliatone/go-onboarding/pkg/submission"
	"github.com/goliatone/go-onboarding/pkg/testsupport"
)

func driverSchema(t *testing.T) model.RoleSchema {
	t.Helper()
	return testsupport.MustSchema(t, "driver")
}

func driverState() *model.WizardState {
	state := model.NewState()
	state.Role = "driver"
	state.Values["first_name"] = "  Amit "
	state.Values["last_name"] = "   "
	state.Values["password"] = "  pass word  "
	state.Values["confirm_password"] = "  pass word  "
	state.Values["languages"] = []string{"English", " ", "Hindi"}
	state.Values["police_verified"] = true
	state.Values["fitness_confirmed"] = false
	state.Values["experience_years"] = 7
	state.Values["photo"] = model.File{Name: "amit.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}
	state.Attachments["license_copy"] = "https://files.example/licence.pdf"
	return state
}

func TestAssemble_DriverPayload(t *testing.T) {
	payload, err := submission.Assemble(driverSchema(t), driverState(), submission.Options{DefaultSchool: "SCH-1"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	want := map[string]string{
		"first_name":        "Amit",
		"password":          "  pass word  ",
		"languages":         "English,Hindi",
		"police_verified":   "true",
		"fitness_confirmed": "false",
		"experience_years":  "7",
		"role":              "driver",
		"school_id":         "SCH-1",
	}
	if diff := cmp.Diff(want, payload.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if len(payload.Files) != 1 || payload.Files["photo"].Name != "amit.jpg" {
		t.Fatalf("expected only the new photo to be attached, got %v", payload.Files)
	}
}

func TestAssemble_SchoolAndRole(t *testing.T) {
	schema := driverSchema(t)

	state := driverState()
	state.Values["school_id"] = "SCH-9"
	payload, err := submission.Assemble(schema, state, submission.Options{DefaultSchool: "SCH-1"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if payload.Fields["school_id"] != "SCH-9" {
		t.Fatalf("explicit school must win, got %q", payload.Fields["school_id"])
	}

	if _, err := submission.Assemble(schema, driverState(), submission.Options{}); !errors.Is(err, submission.ErrNoSchool) {
		t.Fatalf("expected ErrNoSchool, got %v", err)
	}

	blank := driverState()
	blank.Values["password"] = "   "
	payload, err = submission.Assemble(schema, blank, submission.Options{DefaultSchool: "SCH-1", RoleKey: "staff_role"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if _, ok := payload.Fields["password"]; ok {
		t.Fatalf("blank password must be omitted")
	}
	if payload.Fields["staff_role"] != "driver" {
		t.Fatalf("expected custom role key, got %v", payload.Fields)
	}
}

func TestPayload_WriteMultipart(t *testing.T) {
	payload, err := submission.Assemble(driverSchema(t), driverState(), submission.Options{DefaultSchool: "SCH-1"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	var buf bytes.Buffer
	contentType, err := payload.WriteMultipart(&buf)
	if err != nil {
		t.Fatalf("WriteMultipart: %v", err)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("unexpected content type %q (%v)", contentType, err)
	}

	form, err := multipart.NewReader(&buf, params["boundary"]).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}
	if got := form.Value["school_id"]; len(got) != 1 || got[0] != "SCH-1" {
		t.Fatalf("school_id part mismatch: %v", got)
	}
	headers := form.File["photo"]
	if len(headers) != 1 || headers[0].Filename != "amit.jpg" {
		t.Fatalf("photo part mismatch: %v", headers)
	}
	if headers[0].Header.Get("Content-Type") != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", headers[0].Header.Get("Content-Type"))
	}
	f, err := headers[0].Open()
	if err != nil {
		t.Fatalf("open part: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "jpeg" {
		t.Fatalf("file content mismatch: %q", data)
	}
	if _, ok := form.File["license_copy"]; ok {
		t.Fatalf("existing attachment must not be uploaded again")
	}
}

func TestPayload_WriteMultipartQuotesFilenames(t *testing.T) {
	name := "cv\u200b \"final\".pdf"
	payload := submission.Payload{
		Fields: map[string]string{"role": "staff"},
		Files:  map[string]model.File{"resume": {Name: name, ContentType: "application/pdf", Data: []byte("%PDF")}},
	}

	var buf bytes.Buffer
	contentType, err := payload.WriteMultipart(&buf)
	if err != nil {
		t.Fatalf("WriteMultipart: %v", err)
	}
	if strings.Contains(buf.String(), `\u200b`) || !strings.Contains(buf.String(), `\"final\"`) {
		t.Fatalf("unexpected Content-Disposition in %q", buf.String())
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("ParseMediaType: %v", err)
	}
	form, err := multipart.NewReader(&buf, params["boundary"]).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}
	if headers := form.File["resume"]; len(headers) != 1 || headers[0].Filename != name {
		t.Fatalf("filename did not survive the round trip: %v", headers)
	}
}

func TestPayload_JSONMasksSecrets(t *testing.T) {
	payload, err := submission.Assemble(driverSchema(t), driverState(), submission.Options{DefaultSchool: "SCH-1"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	raw, err := payload.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if strings.Contains(string(raw), "pass word") {
		t.Fatalf("password leaked into JSON: %s", raw)
	}

	var doc struct {
		Fields map[string]string `json:"fields"`
		Files  map[string]struct {
			Name string `json:"name"`
			Size int    `json:"size"`
		} `json:"files"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.Files["photo"].Size != 4 || doc.Fields["role"] != "driver" {
		t.Fatalf("unexpected JSON document: %s", raw)
	}
}

func TestPayload_JSONGolden(t *testing.T) {
	payload, err := submission.Assemble(driverSchema(t), driverState(), submission.Options{DefaultSchool: "SCH-1"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	raw, err := payload.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if diff := testsupport.CompareGolden(t, filepath.Join("testdata", "driver_payload.golden.json"), raw); diff != "" {
		t.Fatalf("payload JSON mismatch (-want +got):\n%s", diff)
	}
}
