package model

import (
	"fmt"
	"time"
)

// LocalTime 以 UTC 的 "YYYY-MM-DD HH:MM:SS" 格式输出时间，用于对话导出的文本。
type LocalTime time.Time

const timeFormat = "2006-01-02 15:04:05"

// MarshalJSON implements the json.Marshaler interface.
func (t LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", t.String())), nil
}

func (t LocalTime) String() string {
	return time.Time(t).UTC().Format(timeFormat)
}
