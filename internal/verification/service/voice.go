package service

import (
	"fmt"
	"strings"

	"github.com/medguard/medguard-backend/internal/verification/domain"
)

// VoiceMessage is the spoken summary read out for a scan result
func VoiceMessage(r *domain.ScanResult) string {
	var msg string
	switch r.Status {
	case domain.StatusGenuine:
		msg = fmt.Sprintf("This medicine is genuine. %s. %s", r.MedicineName, r.Purpose)
	case domain.StatusFake:
		effects := r.SideEffects
		if effects == "" {
			effects = "unknown harmful effects"
		}
		msg = fmt.Sprintf("Warning! This is a fake medicine. %s. Possible side effects include: %s. Do not consume.", r.MedicineName, effects)
	default:
		msg = fmt.Sprintf("This medicine is suspicious. %s. Please verify with a pharmacist.", r.MedicineName)
	}

	if r.IsExpired != nil && *r.IsExpired {
		msg = strings.TrimSpace(msg) + fmt.Sprintf(" This medicine expired on %s. Do not consume.", r.ExpiryDate)
	}
	return strings.TrimSpace(msg)
}
