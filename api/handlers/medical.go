package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/unit-mercury/mercury-api/api"
	"github.com/unit-mercury/mercury-api/api/scheduler"
	"github.com/unit-mercury/mercury-api/config"
	"github.com/unit-mercury/mercury-api/databases"
	"github.com/unit-mercury/mercury-api/models"
)

// Medical exported for testing purposes
type Medical struct {
	DB    databases.MedicalDatabase
	EDB   databases.EventDatabase
	UDB   databases.UserDatabase
	Sched *scheduler.Scheduler
}

// csvDate parses the yyyymmdd date column format of readiness exports.
type csvDate struct {
	time.Time
}

// UnmarshalCSV implements gocsv unmarshalling for csvDate
func (d *csvDate) UnmarshalCSV(csv string) error {
	t, err := time.Parse("20060102", strings.TrimSpace(csv))
	if err != nil {
		return err
	}
	d.Time = t.UTC()
	return nil
}

type medicalRow struct {
	Dod      string  `csv:"dod"`
	Name     string  `csv:"name"`
	Upc      string  `csv:"upc"`
	UnitName string  `csv:"unit_name"`
	Mrc      string  `csv:"mrc"`
	Drc      string  `csv:"drc"`
	DentDate csvDate `csv:"dent_date"`
	PhaDate  csvDate `csv:"pha_date"`
}

type uploadMedicalRequest struct {
	Filename string `json:"filename"`
	CSVFile  string `json:"csv_file"`
}

// Reminder lead times before a medical due date.
var medicalReminderOffsets = []time.Duration{
	270 * 24 * time.Hour,
	180 * 24 * time.Hour,
	24 * time.Hour,
}

// UploadMedicalDataHandler ingests a readiness CSV export. Each row upserts
// a medical record keyed by dod and maintains two due-date events per
// person, with push reminders scheduled ahead of each date.
func (m Medical) UploadMedicalDataHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req uploadMedicalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Filename == "" {
		config.ErrorStatus("missing filename", http.StatusBadRequest, w, errMissingField)
		return
	}
	if !strings.HasSuffix(strings.ToLower(req.Filename), ".csv") {
		config.ErrorStatus("only .csv files are accepted", http.StatusUnsupportedMediaType, w, errMissingField)
		return
	}
	if req.CSVFile == "" {
		config.ErrorStatus("missing csv_file", http.StatusBadRequest, w, errMissingField)
		return
	}
	raw, err := decodeBase64(req.CSVFile)
	if err != nil {
		config.ErrorStatus("failed to decode csv_file", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	caller, err := m.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("caller is not registered", http.StatusNotFound, w, err)
		return
	}

	var rows []medicalRow
	if err := gocsv.Unmarshal(bytes.NewReader(raw), &rows); err != nil {
		config.ErrorStatus("failed to parse csv content", http.StatusBadRequest, w, err)
		return
	}
	if len(rows) == 0 {
		config.ErrorStatus("csv contains no rows", http.StatusBadRequest, w, errMissingField)
		return
	}

	now := time.Now().UTC()
	imported := 0
	for _, row := range rows {
		if row.Dod == "" {
			continue
		}
		record := models.MedicalRecord{
			Dod:         row.Dod,
			Name:        row.Name,
			Upc:         row.Upc,
			UnitName:    row.UnitName,
			Mrc:         row.Mrc,
			Drc:         row.Drc,
			DentDate:    row.DentDate.Time,
			PhaDate:     row.PhaDate.Time,
			CreatorUID:  ident.UID,
			CreatorName: caller.Name,
			CreatorDod:  caller.Dod,
			Timestamp:   now,
		}
		_, err := m.DB.UpdateOne(ctx,
			bson.M{"_id": row.Dod},
			bson.M{"$set": record},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			config.ErrorStatus("failed to store medical record", http.StatusInternalServerError, w, err)
			return
		}

		m.upsertDueEvent(ctx, ident.UID, row.Dod, row.Name, models.MedicalDentalDescription, row.DentDate.Time)
		m.upsertDueEvent(ctx, ident.UID, row.Dod, row.Name, models.MedicalPhysicalDescription, row.PhaDate.Time)
		imported++
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "medical data uploaded successfully",
		"imported": imported,
	})
}

// upsertDueEvent keeps one event per person and due-date kind. Re-imports
// find the existing event by (description, invitee dod) and move its dates.
func (m Medical) upsertDueEvent(ctx context.Context, authorUID, dod, name, description string, due time.Time) {
	if due.IsZero() {
		return
	}
	start := due.Format(time.RFC3339)
	end := due.Add(24 * time.Hour).Format(time.RFC3339)

	existing, err := m.EDB.FindOne(ctx, bson.M{
		"description":  description,
		"invitees_dod": dod,
	})
	if err == nil {
		if existing.Starttime == start {
			return
		}
		_, err = m.EDB.UpdateOne(ctx, bson.M{"_id": existing.EventID}, bson.M{"$set": bson.M{
			"starttime": start,
			"endtime":   end,
			"timestamp": time.Now().UTC(),
		}})
		if err != nil {
			zap.S().Errorw("failed to move medical due event",
				"dod", dod,
				"description", description,
				"error", err)
			return
		}
		m.scheduleMedicalReminders(ctx, dod, description, due)
		return
	}

	event := models.Event{
		EventID:      uuid.New().String(),
		Author:       authorUID,
		Title:        name + " " + description,
		Starttime:    start,
		Endtime:      end,
		Type:         "medical",
		Organizer:    "medical readiness",
		Description:  description,
		InviteesDod:  []string{dod},
		ConfirmedDod: []string{},
		Timestamp:    time.Now().UTC(),
	}
	if err := m.EDB.InsertOne(ctx, event); err != nil {
		zap.S().Errorw("failed to create medical due event",
			"dod", dod,
			"description", description,
			"error", err)
		return
	}
	m.scheduleMedicalReminders(ctx, dod, description, due)
}

// scheduleMedicalReminders queues pushes ahead of the due date, skipping
// lead times that have already passed.
func (m Medical) scheduleMedicalReminders(ctx context.Context, dod, description string, due time.Time) {
	user, err := m.UDB.FindOne(ctx, bson.M{"dod": dod})
	if err != nil || user.FCMToken == "" {
		return
	}

	now := time.Now().UTC()
	for _, offset := range medicalReminderOffsets {
		sendAt := due.Add(-offset)
		if !sendAt.After(now) {
			continue
		}
		_, err := m.Sched.Schedule(ctx, sendAt,
			[]string{user.FCMToken},
			models.NotificationMedicalDue,
			description+" on "+due.Format("2006-01-02"),
			map[string]string{"type": models.NotificationMedicalDue},
		)
		if err != nil {
			zap.S().Errorw("failed to schedule medical reminder",
				"dod", dod,
				"sendAt", sendAt,
				"error", err)
		}
	}
}
