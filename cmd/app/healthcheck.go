package main

import "net/http"

// healthCheckHandler also reports the settings that change how blogs are
// handled: the ownerless blog policy and whether events reach a broker.
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	broker := "disabled"
	if app.config.BrokerEnabled() {
		broker = "enabled"
	}

	env := envelope{
		"status": "available",
		"system_info": map[string]string{
			"environment":     app.config.Environment,
			"version":         app.config.Version,
			"ownerless_blogs": app.config.OwnershipPolicy().String(),
			"event_broker":    broker,
		},
	}

	err := app.writeJSON(w, http.StatusOK, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
