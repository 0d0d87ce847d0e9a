package delivery

// sendInApp performs no external call: an "in_app" delivery target exists so
// its content shows up in GET /v1/deliveries, nothing more (spec §3
// "in_app: persist the delivery record, no external send").
func sendInApp() error {
	return nil
}
