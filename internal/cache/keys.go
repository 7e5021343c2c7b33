package cache

import (
	"strconv"
	"strings"

	"github.com/ajramos/mailtui/internal/webmail"
)

// Key identifies one query: the endpoint it reads and its parameters
type Key struct {
	Endpoint string
	Params   string
}

// NewKey joins params with "|"
func NewKey(endpoint string, params ...string) Key {
	return Key{Endpoint: endpoint, Params: strings.Join(params, "|")}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Endpoint
	}
	return k.Endpoint + "?" + k.Params
}

// MailboxKey is the received mailbox list
func MailboxKey(mailboxID string) Key {
	return NewKey("/email/allmails", mailboxID)
}

// SentKey is one sent-side list (sent, draft or scheduled)
func SentKey(mailboxID string, status webmail.SendStatus) Key {
	return NewKey("/mails/get-sendmail", mailboxID, string(status))
}

// SentKeys covers every sent-side list of a mailbox
func SentKeys(mailboxID string) []Key {
	keys := make([]Key, 0, len(webmail.SendStatuses))
	for _, st := range webmail.SendStatuses {
		keys = append(keys, SentKey(mailboxID, st))
	}
	return keys
}

// ConversationKey is one thread's conversation
func ConversationKey(mailboxID, threadID string) Key {
	return NewKey("/mails/conversation", mailboxID, threadID)
}

// LabelsKey is the mailbox's label list
func LabelsKey(mailboxID string) Key {
	return NewKey("/label/getLabels", mailboxID)
}

// EmailLabelsKey is the set of labels assigned to one message
func EmailLabelsKey(ref webmail.MessageRef) Key {
	return NewKey("/email/getEmailLabels", ref.String())
}

// LabelEmailsKey is the list of messages carrying a label
func LabelEmailsKey(labelID string, forSendMail bool) Key {
	return NewKey("/email/getEmailsByLabel", labelID, strconv.FormatBool(forSendMail))
}

// LabelEmailsKeys covers both the received and sent list of a label
func LabelEmailsKeys(labelID string) []Key {
	return []Key{LabelEmailsKey(labelID, false), LabelEmailsKey(labelID, true)}
}
