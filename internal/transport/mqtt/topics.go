package mqtt

import (
	"strings"
)

// Topics builds the bridge topics under a prefix:
//
//	<prefix>/action/<name>/call      requests
//	<prefix>/action/<name>/response  default replies
//	<prefix>/status                  retained online/offline
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return "spook"
	}
	return p
}

// CallWildcard matches the call topic of every action
func (t Topics) CallWildcard() string {
	return t.prefix() + "/action/+/call"
}

func (t Topics) Call(action string) string {
	return t.prefix() + "/action/" + action + "/call"
}

func (t Topics) Response(action string) string {
	return t.prefix() + "/action/" + action + "/response"
}

func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// ActionFromCall extracts the action name from a call topic
func (t Topics) ActionFromCall(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.prefix()+"/action/")
	if !ok {
		return "", false
	}
	action, ok := strings.CutSuffix(rest, "/call")
	if !ok || action == "" || strings.Contains(action, "/") {
		return "", false
	}
	return action, true
}
