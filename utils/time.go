package utils

import "time"

// EpochTime converts an ISO-8601 timestamp to epoch seconds.
func EpochTime(iso8601 string) (int64, error) {
	t, err := time.Parse(time.RFC3339, iso8601)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// CurrentEpochTime returns the current UTC time as epoch seconds.
func CurrentEpochTime() int64 {
	return time.Now().UTC().Unix()
}
