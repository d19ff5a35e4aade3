package dispatch

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/outbox/payloads"
	"github.com/dagym/contract-backend/pkg/types"
)

const brandPrefix = "[다짐]"

var krwPrinter = message.NewPrinter(language.Korean)

// Message is a rendered notification ready for a channel sender.
type Message struct {
	Channel enums.SendMethod
	To      string
	Subject string
	Body    string
}

// FormatKRW renders an amount in won with thousands separators, e.g. 1,188,000원.
func FormatKRW(amount int64) string {
	return krwPrinter.Sprintf("%d원", amount)
}

// recipientAddress picks the address the channel delivers to.
func recipientAddress(method enums.SendMethod, contact types.ClientContact) (string, error) {
	switch method {
	case enums.SendMethodEmail:
		if strings.TrimSpace(contact.Email) == "" {
			return "", fmt.Errorf("recipient email missing")
		}
		return strings.TrimSpace(contact.Email), nil
	case enums.SendMethodSMS, enums.SendMethodKakao:
		if strings.TrimSpace(contact.Phone) == "" {
			return "", fmt.Errorf("recipient phone missing")
		}
		return strings.TrimSpace(contact.Phone), nil
	default:
		return "", fmt.Errorf("unsupported send method %q", method)
	}
}

// RenderLink builds the signing-link notification.
func RenderLink(event payloads.ContractLinkEvent) (Message, error) {
	to, err := recipientAddress(event.SendMethod, event.Recipient)
	if err != nil {
		return Message{}, err
	}
	subject := fmt.Sprintf("%s %s 전자계약서 서명 요청", brandPrefix, event.BusinessName)
	if event.Resend {
		subject = fmt.Sprintf("%s (재발송) %s 전자계약서 서명 요청", brandPrefix, event.BusinessName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s님, 안녕하세요.\n", displayName(event.Recipient))
	fmt.Fprintf(&b, "%s 서비스 이용 계약서가 도착했습니다.\n", event.BusinessName)
	fmt.Fprintf(&b, "결제 금액: %s (%s)\n", FormatKRW(event.TotalAmount), event.BillingCycle.Label())
	b.WriteString("아래 링크에서 약관 동의 후 서명해 주세요.\n")
	b.WriteString(event.Link)

	return Message{
		Channel: event.SendMethod,
		To:      to,
		Subject: subject,
		Body:    b.String(),
	}, nil
}

// RenderStatus builds the lifecycle notice sent after signing, payment and completion.
func RenderStatus(event payloads.ContractStatusEvent) (Message, error) {
	to, err := recipientAddress(event.SendMethod, event.Recipient)
	if err != nil {
		return Message{}, err
	}
	var headline string
	switch event.To {
	case enums.ContractStatusSigned:
		headline = "계약서 서명이 완료되었습니다."
	case enums.ContractStatusPaid:
		headline = fmt.Sprintf("%s 결제가 확인되었습니다.", FormatKRW(event.TotalAmount))
	case enums.ContractStatusCompleted:
		headline = "계약이 최종 완료되었습니다. 다짐 서비스를 이용해 주셔서 감사합니다."
	default:
		return Message{}, fmt.Errorf("no notice for status %q", event.To)
	}

	return Message{
		Channel: event.SendMethod,
		To:      to,
		Subject: fmt.Sprintf("%s %s 계약 %s", brandPrefix, event.BusinessName, event.To.Label()),
		Body:    fmt.Sprintf("%s님, %s", displayName(event.Recipient), headline),
	}, nil
}

func displayName(contact types.ClientContact) string {
	if name := strings.TrimSpace(contact.Name); name != "" {
		return name
	}
	return "고객"
}
