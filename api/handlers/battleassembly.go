package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/unit-mercury/mercury-api/api"
	"github.com/unit-mercury/mercury-api/config"
	"github.com/unit-mercury/mercury-api/models"
)

// drillDate parses the d-Mon-yy date columns of a battle-assembly export,
// e.g. "7-Aug-26".
type drillDate struct {
	time.Time
}

// UnmarshalCSV implements gocsv unmarshalling for drillDate
func (d *drillDate) UnmarshalCSV(csv string) error {
	t, err := time.Parse("2-Jan-06", strings.TrimSpace(csv))
	if err != nil {
		return err
	}
	d.Time = t.UTC()
	return nil
}

// drillHour parses the hour-and-meridiem time columns of a battle-assembly
// export, e.g. "7:AM" or "4:PM".
type drillHour struct {
	Hour int
}

// UnmarshalCSV implements gocsv unmarshalling for drillHour
func (h *drillHour) UnmarshalCSV(csv string) error {
	parts := strings.SplitN(strings.TrimSpace(csv), ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("malformed time %q", csv)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return err
	}
	if hour < 1 || hour > 12 {
		return fmt.Errorf("hour out of range in %q", csv)
	}
	switch strings.ToUpper(parts[1]) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return fmt.Errorf("malformed meridiem in %q", csv)
	}
	h.Hour = hour
	return nil
}

type battleAssemblyRow struct {
	Unit           string    `csv:"UNIT"`
	EventType      string    `csv:"EVENT TYPE"`
	Location       string    `csv:"LOCATION"`
	Muta           string    `csv:"MUTA"`
	TrainingEvents string    `csv:"TRAINING EVENTS"`
	Remarks        string    `csv:"REMARKS"`
	StartDate      drillDate `csv:"START DATE"`
	StartTime      drillHour `csv:"START TIME"`
	EndDate        drillDate `csv:"END DATE"`
	EndTime        drillHour `csv:"END TIME"`
}

type uploadBattleAssemblyRequest struct {
	Filename string `json:"filename"`
	CSVFile  string `json:"csv_file"`
}

// UploadBattleAssemblyHandler ingests a drill-schedule CSV export. Each row
// becomes a periodic battle-assembly event authored by the uploader, with the
// drill columns carried on the event.
func (e Event) UploadBattleAssemblyHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req uploadBattleAssemblyRequest
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

	caller, err := e.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("caller is not registered", http.StatusNotFound, w, err)
		return
	}

	var rows []battleAssemblyRow
	if err := gocsv.Unmarshal(bytes.NewReader(raw), &rows); err != nil {
		config.ErrorStatus("failed to parse csv content", http.StatusBadRequest, w, err)
		return
	}
	if len(rows) == 0 {
		config.ErrorStatus("csv contains no rows", http.StatusBadRequest, w, errMissingField)
		return
	}

	imported := 0
	for _, row := range rows {
		start := row.StartDate.Add(time.Duration(row.StartTime.Hour) * time.Hour)
		end := row.EndDate.Add(time.Duration(row.EndTime.Hour) * time.Hour)
		event := models.Event{
			EventID:        uuid.New().String(),
			Author:         ident.UID,
			Title:          "Battle Assembly",
			Starttime:      start.Format(time.RFC3339),
			Endtime:        end.Format(time.RFC3339),
			Type:           row.EventType,
			Period:         true,
			Organizer:      caller.Name,
			Description:    "Training Drills",
			InviteesDod:    []string{},
			ConfirmedDod:   []string{},
			Timestamp:      time.Now().UTC(),
			Unit:           row.Unit,
			Location:       row.Location,
			Muta:           row.Muta,
			TrainingEvents: row.TrainingEvents,
			Remarks:        row.Remarks,
		}
		if err := e.DB.InsertOne(ctx, event); err != nil {
			config.ErrorStatus("failed to create battle assembly event", http.StatusInternalServerError, w, err)
			return
		}
		imported++
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "battle assembly schedule uploaded successfully",
		"imported": imported,
	})
}
