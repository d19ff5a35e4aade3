package dispatch

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/outbox/payloads"
	"github.com/dagym/contract-backend/pkg/types"
)

func TestFormatKRW(t *testing.T) {
	cases := map[int64]string{
		0:       "0원",
		990:     "990원",
		99000:   "99,000원",
		1188000: "1,188,000원",
	}
	for amount, want := range cases {
		if got := FormatKRW(amount); got != want {
			t.Fatalf("FormatKRW(%d) = %q, want %q", amount, got, want)
		}
	}
}

func TestRenderLinkPicksAddressByChannel(t *testing.T) {
	contact := types.ClientContact{Name: "홍길동", Email: "owner@gym.kr", Phone: "010-1234-5678"}
	event := payloads.ContractLinkEvent{
		ContractID:   uuid.New(),
		BusinessName: "다짐 피트니스",
		Recipient:    contact,
		SendMethod:   enums.SendMethodEmail,
		Link:         "https://sign.dagym.com/contract/abc",
		TotalAmount:  1188000,
		BillingCycle: enums.BillingCycleYearly,
	}

	msg, err := RenderLink(event)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.To != "owner@gym.kr" {
		t.Fatalf("expected email recipient, got %q", msg.To)
	}
	if !strings.Contains(msg.Body, "1,188,000원 (연간)") {
		t.Fatalf("expected formatted amount in body: %q", msg.Body)
	}
	if !strings.HasSuffix(msg.Body, event.Link) {
		t.Fatalf("expected link at the end of body: %q", msg.Body)
	}

	event.SendMethod = enums.SendMethodKakao
	event.Resend = true
	msg, err = RenderLink(event)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.To != "010-1234-5678" {
		t.Fatalf("expected phone recipient, got %q", msg.To)
	}
	if !strings.Contains(msg.Subject, "재발송") {
		t.Fatalf("expected resend marker in subject: %q", msg.Subject)
	}
}

func TestRenderLinkRequiresAddress(t *testing.T) {
	_, err := RenderLink(payloads.ContractLinkEvent{
		SendMethod: enums.SendMethodEmail,
		Recipient:  types.ClientContact{Name: "홍길동", Phone: "010-1234-5678"},
	})
	if err == nil {
		t.Fatal("expected missing email to fail")
	}
}

func TestRenderStatus(t *testing.T) {
	base := payloads.ContractStatusEvent{
		BusinessName: "다짐 피트니스",
		Recipient:    types.ClientContact{Phone: "010-1234-5678"},
		SendMethod:   enums.SendMethodSMS,
		TotalAmount:  99000,
	}

	paid := base
	paid.From, paid.To = enums.ContractStatusSigned, enums.ContractStatusPaid
	msg, err := RenderStatus(paid)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(msg.Body, "99,000원") || !strings.HasPrefix(msg.Body, "고객님") {
		t.Fatalf("unexpected body %q", msg.Body)
	}
	if !strings.Contains(msg.Subject, "결제완료") {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}

	sent := base
	sent.To = enums.ContractStatusSent
	if _, err := RenderStatus(sent); err == nil {
		t.Fatal("expected no notice for sent status")
	}
}

func TestMaskRecipient(t *testing.T) {
	if got := maskRecipient("010-1234-5678"); got != "***-****-5678" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := maskRecipient("abc"); got != "****" {
		t.Fatalf("unexpected short mask %q", got)
	}
}
