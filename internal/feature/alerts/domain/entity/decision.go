package entity

// Decision is the outcome of evaluating one alert against a market snapshot.
//
// Insufficient means the snapshot lacked the data the kind needs; it is
// neither a trigger nor an error and the alert stays armed.
type Decision struct {
	ShouldTrigger bool
	Insufficient  bool
	Message       string
}

// CycleReport summarizes one evaluation cycle.
type CycleReport struct {
	Scanned      int `json:"scanned"`
	Triggered    int `json:"triggered"`
	Insufficient int `json:"insufficient"`
	Errors       int `json:"errors"`
}
