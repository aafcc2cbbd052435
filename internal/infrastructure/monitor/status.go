package monitor

import "time"

// Status is the last observed reachability of the daemon's dependencies.
type Status struct {
	Host      bool      `json:"host"`
	Cache     bool      `json:"cache"`
	Backend   string    `json:"cache_backend"`
	Entities  int       `json:"entities"`
	LastCheck time.Time `json:"last_check"`
}
