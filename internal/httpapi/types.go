package httpapi

import "referral-engine/internal/domain"

type uploadResponse struct {
	Message string            `json:"message"`
	Data    []domain.Referral `json:"data,omitempty"`
}

type searchResponse struct {
	Query   string            `json:"query"`
	Results []domain.Referral `json:"results"`
}
