// Package dispatch initiates outbound contact with a discovered company
// over a chosen channel. Phone channels go out through the telephony
// provider; link channels resolve to the URL or handle the caller should
// open, since those networks do not allow unsolicited API messaging.
package dispatch

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/contactloop/leadscout/internal/config"
	"github.com/contactloop/leadscout/internal/model"
	"github.com/contactloop/leadscout/internal/store"
	"github.com/contactloop/leadscout/pkg/twilio"
)

// Method identifies an outbound contact channel.
type Method string

const (
	MethodEmail       Method = "email"
	MethodWhatsApp    Method = "whatsapp"
	MethodCall        Method = "call"
	MethodSMS         Method = "sms"
	MethodLinkedIn    Method = "linkedin"
	MethodTwitter     Method = "twitter"
	MethodTelegram    Method = "telegram"
	MethodContactForm Method = "contact_form"
	MethodLiveChat    Method = "live_chat"
)

// Outcome statuses.
const (
	StatusSent   = "sent"   // delivered through the telephony provider
	StatusManual = "manual" // target resolved, completion is up to the caller
	StatusFailed = "failed"
)

// demoVoiceURL serves the TwiML for outbound calls.
const demoVoiceURL = "http://demo.twilio.com/docs/voice.xml"

// Outcome describes what happened for a dispatch request.
type Outcome struct {
	Method Method `json:"method"`
	Target string `json:"target"`
	Status string `json:"status"`
}

// Dispatcher routes contact requests to the right channel and records every
// attempt in the contact log.
type Dispatcher struct {
	twilio      twilio.Client
	store       store.Store
	fromNumber  string
	messageBody string
}

// New creates a Dispatcher. The store may be nil, in which case attempts
// are not logged.
func New(tw twilio.Client, st store.Store, cfg config.TwilioConfig) *Dispatcher {
	return &Dispatcher{
		twilio:      tw,
		store:       st,
		fromNumber:  cfg.FromNumber,
		messageBody: cfg.MessageBody,
	}
}

// Dispatch contacts the company over the given method. Unknown methods and
// companies missing the channel's field fail with an error; every attempt,
// successful or not, is appended to the company's contact log.
func (d *Dispatcher) Dispatch(ctx context.Context, company *model.StoredCompany, method Method) (*Outcome, error) {
	if company == nil {
		return nil, eris.New("dispatch: company is nil")
	}
	method = Method(strings.ToLower(string(method)))

	zap.L().Info("dispatch: initiating contact",
		zap.String("company", company.Name),
		zap.String("method", string(method)),
	)

	outcome, err := d.route(ctx, company, method)
	d.logAttempt(ctx, company.ID, method, outcome, err)
	return outcome, err
}

func (d *Dispatcher) route(ctx context.Context, company *model.StoredCompany, method Method) (*Outcome, error) {
	switch method {
	case MethodWhatsApp:
		return d.sendMessage(ctx, method, company.Phone, "whatsapp:")
	case MethodSMS:
		return d.sendMessage(ctx, method, company.Phone, "")
	case MethodCall:
		return d.startCall(ctx, company.Phone)
	case MethodEmail:
		// No mail transport is wired up. Surface the phone number so the
		// caller can follow up by hand, matching the other manual channels.
		return manualOutcome(method, company.Phone, "no contact number available")
	case MethodLinkedIn:
		return manualOutcome(method, company.LinkedInProfile, "no linkedin profile available")
	case MethodTwitter:
		return manualOutcome(method, company.TwitterHandle, "no twitter handle available")
	case MethodTelegram:
		return manualOutcome(method, company.TelegramHandle, "no telegram handle available")
	case MethodContactForm, MethodLiveChat:
		// Live chat wins when both are known.
		target := company.LiveChatURL
		if target == nil {
			target = company.ContactFormURL
		}
		return manualOutcome(method, target, "no contact form or live chat url available")
	default:
		return nil, eris.Errorf("dispatch: unknown contact method %q", method)
	}
}

func (d *Dispatcher) sendMessage(ctx context.Context, method Method, phone *string, prefix string) (*Outcome, error) {
	if phone == nil || *phone == "" {
		return nil, eris.Errorf("dispatch: %s: no phone number available", method)
	}
	if d.twilio == nil {
		return nil, eris.Errorf("dispatch: %s: telephony client not configured", method)
	}

	resp, err := d.twilio.SendMessage(ctx, twilio.MessageRequest{
		From: prefix + d.fromNumber,
		To:   prefix + *phone,
		Body: d.messageBody,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dispatch: %s to %s", method, *phone)
	}

	zap.L().Info("dispatch: message sent",
		zap.String("method", string(method)),
		zap.String("sid", resp.SID),
	)
	return &Outcome{Method: method, Target: *phone, Status: StatusSent}, nil
}

func (d *Dispatcher) startCall(ctx context.Context, phone *string) (*Outcome, error) {
	if phone == nil || *phone == "" {
		return nil, eris.New("dispatch: call: no phone number available")
	}
	if d.twilio == nil {
		return nil, eris.New("dispatch: call: telephony client not configured")
	}

	resp, err := d.twilio.StartCall(ctx, twilio.CallRequest{
		From:     d.fromNumber,
		To:       *phone,
		TwiMLURL: demoVoiceURL,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dispatch: call to %s", *phone)
	}

	zap.L().Info("dispatch: call started", zap.String("sid", resp.SID))
	return &Outcome{Method: MethodCall, Target: *phone, Status: StatusSent}, nil
}

func manualOutcome(method Method, target *string, missingMsg string) (*Outcome, error) {
	if target == nil || *target == "" {
		return nil, eris.Errorf("dispatch: %s: %s", method, missingMsg)
	}
	return &Outcome{Method: method, Target: *target, Status: StatusManual}, nil
}

func (d *Dispatcher) logAttempt(ctx context.Context, companyID string, method Method, outcome *Outcome, dispatchErr error) {
	if d.store == nil {
		return
	}
	status := StatusFailed
	if dispatchErr == nil && outcome != nil {
		status = outcome.Status
	}
	if _, err := d.store.LogContact(ctx, companyID, string(method), status); err != nil {
		zap.L().Warn("dispatch: recording contact attempt failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
	}
}
