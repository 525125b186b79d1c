// Package timezone pins the platform's local time. FlowAgility lists
// Spanish events with naive local dates, so artifact stamps follow
// Europe/Madrid no matter which host runs the scrape.
package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Madrid")
	if err != nil {
		panic(err)
	}
}

func Now() time.Time {
	return time.Now().In(Location)
}
