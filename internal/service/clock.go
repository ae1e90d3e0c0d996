package service

import "time"

// timestamp returns now in UTC at the microsecond precision every provider stores
func timestamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Microsecond)
}
