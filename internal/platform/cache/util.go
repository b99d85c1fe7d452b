package cache

import (
	"time"
)

// TimeUntilNext は now から次の hour 時（loc 基準）までの期間を返します。
// 当日の hour 時ちょうどの場合は 24 時間後を返します。
func TimeUntilNext(now time.Time, hour int, loc *time.Location) time.Duration {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, loc)

	// 既に過ぎている場合は翌日
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}

	return next.Sub(now)
}
