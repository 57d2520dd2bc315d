package engine

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Mission is one entry of the mission report log (mission.json), newest first.
type Mission struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	AnomalyStatus Text   `json:"异常状态"`
	Codename      Text   `json:"代号"`
	Behavior      Text   `json:"行为"`
	Focus         Text   `json:"焦点"`
	Domain        Text   `json:"领域"`
	Participants  Text   `json:"参与者"`
	Probation     Text   `json:"察看期"`
	MVP           Text   `json:"MVP"`
	Rating        Text   `json:"最终评级"`
}

// MissionDraft is a submitted report before the server assigns id and date.
type MissionDraft struct {
	AnomalyStatus Text `json:"异常状态"`
	Codename      Text `json:"代号"`
	Behavior      Text `json:"行为"`
	Focus         Text `json:"焦点"`
	Domain        Text `json:"领域"`
	Participants  Text `json:"参与者"`
	Probation     Text `json:"察看期"`
	MVP           Text `json:"MVP"`
	Rating        Text `json:"最终评级"`
}

// NewMission stamps a draft with id mission-<unix millis> and the UTC date of now.
func NewMission(d MissionDraft, now time.Time) Mission {
	return Mission{
		ID:            "mission-" + strconv.FormatInt(now.UnixMilli(), 10),
		Date:          now.UTC().Format(time.DateOnly),
		AnomalyStatus: d.AnomalyStatus,
		Codename:      d.Codename,
		Behavior:      d.Behavior,
		Focus:         d.Focus,
		Domain:        d.Domain,
		Participants:  d.Participants,
		Probation:     d.Probation,
		MVP:           d.MVP,
		Rating:        d.Rating,
	}
}

// Text is a report field. Strings decode as is, numbers keep their literal text and
// everything else decodes to "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*t = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if string(b) == "0" {
			*t = ""
			return nil
		}
		*t = Text(b)
	default:
		*t = ""
	}
	return nil
}

// InMail is the single pending in-game email (inMail.json). A nil Email means none.
type InMail struct {
	Email *Email `json:"email"`
}

type Email struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
