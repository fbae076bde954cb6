package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/unit-mercury/mercury-api/api"
	"github.com/unit-mercury/mercury-api/api/handlers"
	"github.com/unit-mercury/mercury-api/config"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	if err := a.Initialize(); err != nil { // initialize database, identity, storage and router
		log.Fatal(err)
	}

	a.Scheduler.Start()
	defer a.Scheduler.Stop()

	zap.S().Infow("mercury-api is up and running",
		"port", a.Config.Port,
		"url", a.Config.BaseURL,
	)

	handler := api.TimeoutMiddleware(30 * time.Second)(a.Router)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%v", a.Config.Port), handler))
}
