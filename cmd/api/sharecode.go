package main

import "time"

// newShareCode mints an opaque invite code for a meetup. Encoding the
// nanosecond clock keeps codes unique without a second round trip for the
// post ID.
func (app *application) newShareCode() (string, error) {
	return app.shareCodes.EncodeInt64([]int64{time.Now().UnixNano()})
}
