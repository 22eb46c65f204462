package redis

import "fmt"

const ns = "cinebook:v1"

// KeySessionSeatMap is the seat map of one cache generation of the session.
func KeySessionSeatMap(sessionID, gen int64) string {
	return fmt.Sprintf("%s:session:%d:seatmap:%d", ns, sessionID, gen)
}

func KeySessionSeatMapGen(sessionID int64) string {
	return fmt.Sprintf("%s:session:%d:seatmap:gen", ns, sessionID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemBooking(viewerID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%d:%s", ns, viewerID, idemKey)
}
