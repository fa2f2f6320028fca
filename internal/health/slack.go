package health

import (
	"github.com/slack-go/slack"
)

type messagePoster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts alerts to one channel.
type SlackNotifier struct {
	api       messagePoster
	channelID string
}

func NewSlackNotifier(api messagePoster, channelID string) *SlackNotifier {
	return &SlackNotifier{api: api, channelID: channelID}
}

func (n *SlackNotifier) Notify(text string) error {
	_, _, err := n.api.PostMessage(n.channelID, slack.MsgOptionText(text, false))
	return err
}
