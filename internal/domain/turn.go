package domain

type Speaker string

const (
	SpeakerUser Speaker = "User"
	SpeakerBot  Speaker = "Bot"
)

type ChatTurn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}
