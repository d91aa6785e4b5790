package services

import (
	"sort"

	"github.com/baharkarakas/p2pgate/internal/models"
)

// EligibleCandidates narrows pool to the requisites that may take amount on
// methodType and orders them least recently used first. Ties on the fairness
// marker break by id so the order is total.
func EligibleCandidates(pool []models.Requisite, methodType string, amount int64) []models.Requisite {
	out := make([]models.Requisite, 0, len(pool))
	for _, r := range pool {
		if r.MethodType != methodType || r.OperatorBanned || r.IsArchived || !r.InRange(amount) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastUsedAt.Equal(out[j].LastUsedAt) {
			return out[i].LastUsedAt.Before(out[j].LastUsedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
