// Package payment simulates the checkout gateway: it validates the payment
// form, waits a configurable latency and declines configured test cards.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tripcart/internal/booking"
	"tripcart/internal/config"
	"tripcart/internal/models"

	"github.com/rs/zerolog"
)

// ErrDeclined is returned when the simulated issuer declines the charge.
var ErrDeclined = errors.New("payment declined by issuer")

var (
	cardNumberRe = regexp.MustCompile(`^\d{16}$`)
	cvvRe        = regexp.MustCompile(`^\d{3,4}$`)
	expiryRe     = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
	upiRe        = regexp.MustCompile(`^[a-zA-Z0-9._-]{2,}@[a-zA-Z]{2,}$`)
)

type Simulator struct {
	declineSuffix string
	latency       time.Duration
	logger        *zerolog.Logger
	now           func() time.Time
	txnDigits     func() int64
}

func NewSimulator(cfg config.PaymentConfig, logger *zerolog.Logger) *Simulator {
	return &Simulator{
		declineSuffix: cfg.DeclineSuffix,
		latency:       cfg.Latency,
		logger:        logger,
		now:           time.Now,
		txnDigits:     func() int64 { return rand.Int64N(1_000_000_000) },
	}
}

// Charge validates req and simulates charging amount.
func (s *Simulator) Charge(ctx context.Context, amount int64, req models.PaymentRequest) (*models.PaymentResult, error) {
	if amount <= 0 {
		return nil, booking.NewValidationError("amount", "amount must be positive")
	}
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if req.Method == models.PaymentCard && s.declineSuffix != "" && strings.HasSuffix(digitsOnly(req.CardNumber), s.declineSuffix) {
		s.logger.Info().Str("method", req.Method).Int64("amount", amount).Msg("Payment declined")
		return nil, ErrDeclined
	}

	res := &models.PaymentResult{
		TransactionID: fmt.Sprintf("%s%09d", models.TransactionPrefix, s.txnDigits()),
		Amount:        amount,
		Method:        req.Method,
		ProcessedAt:   s.now(),
	}
	s.logger.Info().
		Str("transaction_id", res.TransactionID).
		Str("method", req.Method).
		Int64("amount", amount).
		Msg("Payment successful")
	return res, nil
}

// Validate checks the fields of the chosen payment method.
func (s *Simulator) Validate(req models.PaymentRequest) error {
	switch req.Method {
	case models.PaymentCard:
		return s.validateCard(req)
	case models.PaymentUPI:
		if !upiRe.MatchString(strings.TrimSpace(req.UPIID)) {
			return booking.NewValidationError("upi_id", "enter a UPI ID like name@bank")
		}
	case models.PaymentNetBanking:
		if strings.TrimSpace(req.BankCode) == "" {
			return booking.NewValidationError("bank_code", "choose a bank")
		}
	default:
		return booking.NewValidationError("method", fmt.Sprintf("unsupported payment method %q", req.Method))
	}
	return nil
}

func (s *Simulator) validateCard(req models.PaymentRequest) error {
	if !cardNumberRe.MatchString(digitsOnly(req.CardNumber)) {
		return booking.NewValidationError("card_number", "card number must have 16 digits")
	}
	if strings.TrimSpace(req.CardHolder) == "" {
		return booking.NewValidationError("card_holder", "card holder name is required")
	}
	m := expiryRe.FindStringSubmatch(strings.TrimSpace(req.Expiry))
	if m == nil {
		return booking.NewValidationError("expiry", "expiry must be MM/YY")
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	now := s.now()
	// карта действительна до конца месяца истечения
	expiresAt := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, now.Location())
	if !now.Before(expiresAt) {
		return booking.NewValidationError("expiry", "card has expired")
	}
	if !cvvRe.MatchString(req.CVV) {
		return booking.NewValidationError("cvv", "CVV must have 3 or 4 digits")
	}
	return nil
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, s)
}
