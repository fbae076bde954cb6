package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/unit-mercury/mercury-api/api"
	"github.com/unit-mercury/mercury-api/api/scheduler"
	"github.com/unit-mercury/mercury-api/config"
	"github.com/unit-mercury/mercury-api/databases"
	"github.com/unit-mercury/mercury-api/models"
)

// Event exported for testing purposes
type Event struct {
	DB    databases.EventDatabase
	UDB   databases.UserDatabase
	Notif *Notification
	Sched *scheduler.Scheduler
}

type createEventRequest struct {
	Title       string   `json:"title"`
	Starttime   string   `json:"starttime"`
	Endtime     string   `json:"endtime"`
	Type        string   `json:"type"`
	Period      bool     `json:"period"`
	Organizer   string   `json:"organizer"`
	Description string   `json:"description"`
	InviteesDod []string `json:"invitees_dod"`
}

// CreateEventHandler creates an event, invites everyone on the list, and
// schedules a start-time push for invitees that have a device token
func (e Event) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	for field, value := range map[string]string{
		"title":     req.Title,
		"starttime": req.Starttime,
		"endtime":   req.Endtime,
		"type":      req.Type,
		"organizer": req.Organizer,
	} {
		if value == "" {
			config.ErrorStatus("missing "+field, http.StatusBadRequest, w, errMissingField)
			return
		}
	}

	starttime, err := normalizeEventTime(req.Starttime)
	if err != nil {
		config.ErrorStatus("invalid starttime", http.StatusBadRequest, w, err)
		return
	}
	endtime, err := normalizeEventTime(req.Endtime)
	if err != nil {
		config.ErrorStatus("invalid endtime", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	caller, err := e.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("caller is not registered", http.StatusBadRequest, w, err)
		return
	}

	eventID := uuid.New().String()
	event := models.Event{
		EventID:      eventID,
		Author:       ident.UID,
		Title:        req.Title,
		Starttime:    starttime,
		Endtime:      endtime,
		Type:         req.Type,
		Period:       req.Period,
		Organizer:    req.Organizer,
		Description:  req.Description,
		InviteesDod:  req.InviteesDod,
		ConfirmedDod: []string{},
		Timestamp:    time.Now().UTC(),
	}

	event.TimerID = e.scheduleStartPush(ctx, event)

	if err := e.DB.InsertOne(ctx, event); err != nil {
		config.ErrorStatus("failed to create event", http.StatusInternalServerError, w, err)
		return
	}

	e.notifyAll(ctx, event.InviteesDod, models.Notification{
		NotificationType: models.NotificationEventInvite,
		Sender:           ident.UID,
		SenderName:       caller.Name,
		Type:             "event",
		RefID:            eventID,
	})

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "event created successfully",
		"id":      eventID,
	})
}

type updateEventRequest struct {
	EventID     string   `json:"event_id"`
	Title       string   `json:"title"`
	Starttime   string   `json:"starttime"`
	Endtime     string   `json:"endtime"`
	Type        string   `json:"type"`
	Period      *bool    `json:"period"`
	Organizer   string   `json:"organizer"`
	Description string   `json:"description"`
	NewInvitees []string `json:"new_invitees"`
}

// UpdateEventHandler patches an event. Absent fields are left untouched;
// new_invitees replaces the invitee list outright. The start-time push is
// rescheduled against the updated event.
func (e Event) UpdateEventHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	event, err := e.DB.FindOne(ctx, bson.M{"_id": req.EventID})
	if err != nil {
		config.ErrorStatus("failed to get event by ID", http.StatusNotFound, w, err)
		return
	}
	if event.Author != ident.UID && !ident.Claims.Admin {
		config.ErrorStatus("caller is not the author", http.StatusUnauthorized, w, errNotPermitted)
		return
	}

	update := bson.M{"timestamp": time.Now().UTC()}
	if req.Title != "" {
		update["title"] = req.Title
		event.Title = req.Title
	}
	if req.Starttime != "" {
		starttime, err := normalizeEventTime(req.Starttime)
		if err != nil {
			config.ErrorStatus("invalid starttime", http.StatusBadRequest, w, err)
			return
		}
		update["starttime"] = starttime
		event.Starttime = starttime
	}
	if req.Endtime != "" {
		endtime, err := normalizeEventTime(req.Endtime)
		if err != nil {
			config.ErrorStatus("invalid endtime", http.StatusBadRequest, w, err)
			return
		}
		update["endtime"] = endtime
		event.Endtime = endtime
	}
	if req.Type != "" {
		update["type"] = req.Type
	}
	if req.Period != nil {
		update["period"] = *req.Period
	}
	if req.Organizer != "" {
		update["organizer"] = req.Organizer
	}
	if req.Description != "" {
		update["description"] = req.Description
	}
	if req.NewInvitees != nil {
		update["invitees_dod"] = req.NewInvitees
		event.InviteesDod = req.NewInvitees
	}

	// reschedule the start-time push against the updated event
	if event.TimerID != "" {
		if err := e.Sched.Cancel(ctx, event.TimerID); err != nil {
			zap.S().Warnw("failed to cancel scheduled push",
				"event", event.EventID,
				"error", err)
		}
	}
	update["timer_id"] = e.scheduleStartPush(ctx, *event)

	_, err = e.DB.UpdateOne(ctx, bson.M{"_id": event.EventID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update event", http.StatusInternalServerError, w, err)
		return
	}

	caller, err := e.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	senderName := ""
	if err == nil {
		senderName = caller.Name
	}
	e.notifyAll(ctx, append(event.InviteesDod, event.ConfirmedDod...), models.Notification{
		NotificationType: models.NotificationEventUpdated,
		Sender:           ident.UID,
		SenderName:       senderName,
		Type:             "event",
		RefID:            event.EventID,
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "event updated successfully",
	})
}

// DeleteEventHandler cancels an event: invitees and confirmed members are
// notified, the scheduled push and the event's notifications are dropped, and
// the document is deleted
func (e Event) DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}
	eventID := mux.Vars(r)["event_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	event, err := e.DB.FindOne(ctx, bson.M{"_id": eventID})
	if err != nil {
		config.ErrorStatus("failed to get event by ID", http.StatusNotFound, w, err)
		return
	}
	if event.Author != ident.UID {
		config.ErrorStatus("caller is not the author", http.StatusUnauthorized, w, errNotPermitted)
		return
	}

	caller, err := e.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	senderName := ""
	if err == nil {
		senderName = caller.Name
	}
	e.notifyAll(ctx, append(event.InviteesDod, event.ConfirmedDod...), models.Notification{
		NotificationType: models.NotificationEventCanceled,
		Sender:           ident.UID,
		SenderName:       senderName,
		Type:             "event",
		RefID:            event.EventID,
	})

	if event.TimerID != "" {
		if err := e.Sched.Cancel(ctx, event.TimerID); err != nil {
			zap.S().Warnw("failed to cancel scheduled push",
				"event", event.EventID,
				"error", err)
		}
	}
	if err := e.Notif.deleteByRef(ctx, event.EventID); err != nil {
		zap.S().Warnw("failed to delete event notifications",
			"event", event.EventID,
			"error", err)
	}

	if _, err := e.DB.DeleteOne(ctx, bson.M{"_id": event.EventID}); err != nil {
		config.ErrorStatus("failed to delete event", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "event deleted successfully",
	})
}

// ConfirmEventHandler moves the caller from invited to confirmed in a single
// conditional update, so a caller that was never invited changes nothing
func (e Event) ConfirmEventHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}
	eventID := mux.Vars(r)["event_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	caller, err := e.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("caller is not registered", http.StatusBadRequest, w, err)
		return
	}

	res, err := e.DB.UpdateOne(ctx,
		bson.M{"_id": eventID, "invitees_dod": caller.Dod},
		bson.M{
			"$pull":     bson.M{"invitees_dod": caller.Dod},
			"$addToSet": bson.M{"confirmed_dod": caller.Dod},
		})
	if err != nil {
		config.ErrorStatus("failed to confirm event", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		event, err := e.DB.FindOne(ctx, bson.M{"_id": eventID})
		if err != nil {
			config.ErrorStatus("failed to get event by ID", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("caller was not invited", http.StatusBadRequest, w, fmt.Errorf("dod %s not on invitee list of event %s", caller.Dod, event.EventID))
		return
	}

	err = e.Notif.create(ctx, models.Notification{
		NotificationType: models.NotificationEventConfirmed,
		Sender:           ident.UID,
		SenderName:       caller.Name,
		Receiver:         mustAuthor(ctx, e.DB, eventID),
		Type:             "event",
		RefID:            eventID,
	})
	if err != nil {
		zap.S().Errorw("failed to notify author of confirmation",
			"event", eventID,
			"error", err)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "event confirmed successfully",
	})
}

// GetEventHandler returns one event. Only the author and people on the invite
// or confirmed lists may fetch it; non-authors do not see the lists.
func (e Event) GetEventHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}
	eventID := mux.Vars(r)["event_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	event, err := e.DB.FindOne(ctx, bson.M{"_id": eventID})
	if err != nil {
		config.ErrorStatus("failed to get event by ID", http.StatusNotFound, w, err)
		return
	}

	if event.Author != ident.UID {
		caller, err := e.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
		if err != nil || (!contains(event.InviteesDod, caller.Dod) && !contains(event.ConfirmedDod, caller.Dod)) {
			config.ErrorStatus("caller does not have access to this event", http.StatusUnauthorized, w, errNotPermitted)
			return
		}
		event.InviteesDod = nil
		event.ConfirmedDod = nil
	}

	b, err := json.Marshal(event)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// GetEventsHandler lists the caller's events, newest first. The target query
// parameter selects invited (0), confirmed (1), both (2, default), or
// authored (3).
func (e Event) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	target := models.EventTargetBoth
	if t := r.URL.Query().Get("target"); t != "" {
		var err error
		target, err = strconv.Atoi(t)
		if err != nil || target < models.EventTargetInvited || target > models.EventTargetAuthored {
			config.ErrorStatus("unsupported target", http.StatusBadRequest, w, fmt.Errorf("target %q", t))
			return
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	caller, err := e.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("caller is not registered", http.StatusBadRequest, w, err)
		return
	}

	var filter bson.M
	switch target {
	case models.EventTargetInvited:
		filter = bson.M{"invitees_dod": caller.Dod}
	case models.EventTargetConfirmed:
		filter = bson.M{"confirmed_dod": caller.Dod}
	case models.EventTargetAuthored:
		filter = bson.M{"author": ident.UID}
	default:
		filter = bson.M{"$or": []bson.M{
			{"invitees_dod": caller.Dod},
			{"confirmed_dod": caller.Dod},
		}}
	}
	if eventType := r.URL.Query().Get("type"); eventType != "" {
		filter["type"] = eventType
	}

	e.listEvents(w, r, ctx, filter, ident.UID)
}

// GetTodaysEventsHandler returns the caller's events whose span covers today,
// from the union of invited, confirmed, and authored
func (e Event) GetTodaysEventsHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	caller, err := e.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("caller is not registered", http.StatusBadRequest, w, err)
		return
	}

	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	filter := bson.M{
		"$or": []bson.M{
			{"invitees_dod": caller.Dod},
			{"confirmed_dod": caller.Dod},
			{"author": ident.UID},
		},
		"starttime": bson.M{"$lte": dayEnd.Format(time.RFC3339)},
		"endtime":   bson.M{"$gte": dayStart.Format(time.RFC3339)},
	}

	e.listEvents(w, r, ctx, filter, ident.UID)
}

func (e Event) listEvents(w http.ResponseWriter, r *http.Request, ctx context.Context, filter bson.M, callerUID string) {
	limit64 := int64(getPageLimit(r))
	Page = getPage(Page, r)
	skip64 := int64(Page) * limit64

	opts := options.Find().
		SetLimit(limit64).
		SetSkip(skip64).
		SetSort(bson.M{"timestamp": -1})

	dbResp, err := e.DB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get events", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Event{}
	}
	for i := range dbResp {
		if dbResp[i].Author != callerUID {
			dbResp[i].InviteesDod = nil
			dbResp[i].ConfirmedDod = nil
		}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// scheduleStartPush stores a delayed push at the event's start time for every
// invitee with a device token. Returns the scheduled id, or "" when there is
// nothing to schedule.
func (e Event) scheduleStartPush(ctx context.Context, event models.Event) string {
	start, err := time.Parse(time.RFC3339, event.Starttime)
	if err != nil {
		zap.S().Warnw("unparseable starttime, skipping start push",
			"event", event.EventID,
			"starttime", event.Starttime)
		return ""
	}
	if start.Before(time.Now()) || len(event.InviteesDod) == 0 {
		return ""
	}

	invitees, err := e.UDB.Find(ctx, bson.M{"dod": bson.M{"$in": event.InviteesDod}})
	if err != nil {
		zap.S().Errorw("failed to resolve invitees for start push",
			"event", event.EventID,
			"error", err)
		return ""
	}
	var tokens []string
	for _, u := range invitees {
		if u.FCMToken != "" {
			tokens = append(tokens, u.FCMToken)
		}
	}
	if len(tokens) == 0 {
		return ""
	}

	timerID, err := e.Sched.Schedule(ctx, start, tokens, event.Title, "event is starting", map[string]string{
		"type": "event",
		"id":   event.EventID,
	})
	if err != nil {
		zap.S().Errorw("failed to schedule start push",
			"event", event.EventID,
			"error", err)
		return ""
	}
	return timerID
}

// normalizeEventTime parses a client-supplied ISO-8601 timestamp and renders
// it in UTC, so stored event times all share one offset and stay comparable
// as strings.
func normalizeEventTime(s string) (string, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(time.RFC3339), nil
}

func (e Event) notifyAll(ctx context.Context, dods []string, template models.Notification) {
	for _, dod := range dods {
		notif := template
		notif.Receiver = dod
		if err := e.Notif.create(ctx, notif); err != nil {
			zap.S().Warnw("failed to notify event member",
				"event", template.RefID,
				"dod", dod,
				"error", err)
		}
	}
}

func mustAuthor(ctx context.Context, db databases.EventDatabase, eventID string) string {
	event, err := db.FindOne(ctx, bson.M{"_id": eventID})
	if err != nil {
		return ""
	}
	return event.Author
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
