package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/unit-mercury/mercury-api/api"
	"github.com/unit-mercury/mercury-api/api/scheduler"
	"github.com/unit-mercury/mercury-api/config"
	"github.com/unit-mercury/mercury-api/databases"
	"github.com/unit-mercury/mercury-api/identity"
	"github.com/unit-mercury/mercury-api/models"
	"github.com/unit-mercury/mercury-api/push"
	"github.com/unit-mercury/mercury-api/storage"
)

// App stores the router and the external collaborators, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Scheduler *scheduler.Scheduler

	dbHelper databases.DatabaseHelper
	verifier identity.Verifier
	provider identity.Provider
	store    storage.ObjectStore
	notifier push.Notifier
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareAuth{Verifier: a.verifier}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	udb := databases.NewUserDatabase(a.dbHelper)
	n := &Notification{DB: databases.NewNotificationDatabase(a.dbHelper), UDB: udb, Push: a.notifier}
	f := File{DB: databases.NewFileDatabase(a.dbHelper), UDB: udb, Store: a.store, Notif: n}
	e := Event{DB: databases.NewEventDatabase(a.dbHelper), UDB: udb, Notif: n, Sched: a.Scheduler}
	roles := Role{DB: databases.NewRoleDatabase(a.dbHelper), UDB: udb, Provider: a.provider, Config: a.Config}
	u := User{DB: udb, Store: a.store, Provider: a.provider}
	ros := Roster{DB: databases.NewRosterDatabase(a.dbHelper), UDB: udb}
	med := Medical{DB: databases.NewMedicalDatabase(a.dbHelper), EDB: databases.NewEventDatabase(a.dbHelper), UDB: udb, Sched: a.Scheduler}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	auth := func(h http.HandlerFunc) http.Handler {
		return m.Middleware(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return m.Middleware(api.AdminOnly(h))
	}

	r.Handle("/auth/logout", auth(api.RevokeToken)).Methods("DELETE")

	r.Handle("/files/upload_file", auth(f.UploadFileHandler)).Methods("POST")
	r.Handle("/files/get_file/{file_id}", auth(f.GetFileHandler)).Methods("GET")
	r.Handle("/files/review_file", auth(f.ReviewFileHandler)).Methods("PUT")
	r.Handle("/files/give_recommendation", auth(f.GiveRecommendationHandler)).Methods("PUT")
	r.Handle("/files/update_file", auth(f.UpdateFileHandler)).Methods("PUT")
	r.Handle("/files/delete_file/{file_id}", auth(f.DeleteFileHandler)).Methods("DELETE")
	r.Handle("/files/get_user_files", auth(f.GetUserFilesHandler)).Methods("GET")
	r.Handle("/files/get_review_files", auth(f.GetReviewFilesHandler)).Methods("GET")
	r.Handle("/files/get_recommend_files", auth(f.GetRecommendFilesHandler)).Methods("GET")

	r.Handle("/events/create_event", auth(e.CreateEventHandler)).Methods("POST")
	r.Handle("/events/update_event", auth(e.UpdateEventHandler)).Methods("PUT")
	r.Handle("/events/delete_event/{event_id}", auth(e.DeleteEventHandler)).Methods("DELETE")
	r.Handle("/events/confirm_event/{event_id}", auth(e.ConfirmEventHandler)).Methods("POST")
	r.Handle("/events/get_event/{event_id}", auth(e.GetEventHandler)).Methods("GET")
	r.Handle("/events/get_events", auth(e.GetEventsHandler)).Methods("GET")
	r.Handle("/events/get_todays_events", auth(e.GetTodaysEventsHandler)).Methods("GET")
	r.Handle("/events/upload_battle_assembly", auth(e.UploadBattleAssemblyHandler)).Methods("POST")

	r.Handle("/rosters/create_roster", auth(ros.CreateRosterHandler)).Methods("POST")
	r.Handle("/rosters/show_rosters", auth(ros.ShowRostersHandler)).Methods("GET")
	r.Handle("/rosters/search_roster", auth(ros.SearchRosterHandler)).Methods("GET")
	r.Handle("/rosters/delete_roster", auth(ros.DeleteRosterHandler)).Methods("DELETE")
	r.Handle("/rosters/add_to_roster", auth(ros.AddToRosterHandler)).Methods("PUT")
	r.Handle("/rosters/remove_from_roster", admin(ros.RemoveFromRosterHandler)).Methods("DELETE")

	r.Handle("/roles/create_role", admin(roles.CreateRoleHandler)).Methods("POST")
	r.Handle("/roles/assign_role", admin(roles.AssignRoleHandler)).Methods("POST")
	r.Handle("/roles/revoke_role", admin(roles.RevokeRoleHandler)).Methods("POST")
	r.Handle("/roles/get_all_roles", auth(roles.GetAllRolesHandler)).Methods("GET")
	r.Handle("/roles/invite_role", auth(roles.InviteRoleHandler)).Methods("POST")
	r.Handle("/roles/check_role_permissions", auth(roles.CheckRolePermissionsHandler)).Methods("POST")

	r.Handle("/users/register_user", auth(u.RegisterUserHandler)).Methods("POST")
	r.Handle("/users/update_user", auth(u.UpdateUserHandler)).Methods("PUT")
	r.Handle("/users/get_user", auth(u.GetUserHandler)).Methods("GET")
	r.Handle("/users/get_users", admin(u.GetUsersHandler)).Methods("GET")
	r.Handle("/users/search_user", auth(u.SearchUserHandler)).Methods("GET")
	r.Handle("/users/get_subordinates", auth(u.GetSubordinatesHandler)).Methods("GET")
	r.Handle("/users/delete_user/{uid}", admin(u.DeleteUserHandler)).Methods("DELETE")

	r.Handle("/notifications/get_notifications", auth(n.GetNotificationsHandler)).Methods("GET")
	r.Handle("/notifications/read_notification/{notification_id}", auth(n.ReadNotificationHandler)).Methods("PUT")
	r.Handle("/notifications/delete_notification/{notification_id}", auth(n.DeleteNotificationHandler)).Methods("DELETE")
	r.Handle("/notifications/send_notification", auth(n.SendNotificationHandler)).Methods("POST")
	r.Handle("/notifications/stream", auth(HandleNotificationsWebSocket)).Methods("GET")

	r.Handle("/medical/upload_medical_data", auth(med.UploadMedicalDataHandler)).Methods("POST")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	ctx := context.Background()

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("mercury-api has connected to the database")

	if a.Config.CredentialsFile != "" {
		a.verifier, a.provider, err = identity.NewFirebase(ctx, &a.Config)
		if err != nil {
			zap.S().With(err).Error("failed to initialize identity provider")
			return err
		}
		a.notifier, err = push.NewFCM(ctx, &a.Config)
		if err != nil {
			zap.S().With(err).Error("failed to initialize push sender")
			return err
		}
	} else {
		zap.S().Warn("no credentials file configured, using local token verification")
		a.verifier, a.provider = identity.NewStatic(a.Config.TokenSecret)
		a.notifier = push.NewLog()
	}

	a.store, err = storage.NewCloudinary(&a.Config)
	if err != nil {
		zap.S().With(err).Error("failed to initialize blob storage")
		return err
	}

	a.Scheduler = scheduler.New(databases.NewScheduledNotificationDatabase(a.dbHelper), a.notifier)

	// initialize api router
	a.initializeRoutes()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
