package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"stakewatch/internal/types"
)

// snapshotDocument is the on-disk batch format. epoch and observed_at live
// at the top level because one batch is a single point-in-time view.
type snapshotDocument struct {
	Epoch      uint64                `json:"epoch"`
	ObservedAt time.Time             `json:"observed_at"`
	Validators []validatorSnapshotIn `json:"validators"`
}

type validatorSnapshotIn struct {
	VoteAccount   string `json:"vote_account"`
	Commission    int    `json:"commission"`
	MEVCommission *int   `json:"mev_commission"`
	Delinquent    bool   `json:"delinquent"`
}

// FileSource reads observation batches from a JSON snapshot file. The file
// is re-read on every Fetch, so replacing it feeds the next sweep. Useful
// for replaying recorded cluster state and for local runs.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

var _ Source = (*FileSource)(nil)

func (f *FileSource) Fetch(_ context.Context) ([]types.Observation, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse snapshot file: %w", err)
	}

	observedAt := doc.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	obs := make([]types.Observation, 0, len(doc.Validators))
	for _, v := range doc.Validators {
		o := types.Observation{
			VoteAccount: v.VoteAccount,
			Epoch:       doc.Epoch,
			ObservedAt:  observedAt,
			Commission:  v.Commission,
			Delinquent:  v.Delinquent,
			MEVDisabled: v.MEVCommission == nil,
		}
		if v.MEVCommission != nil {
			o.MEVCommission = *v.MEVCommission
		}
		obs = append(obs, o)
	}
	return obs, nil
}
