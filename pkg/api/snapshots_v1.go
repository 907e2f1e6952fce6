// pkg/api/snapshots_v1.go
package api

// SnapshotV1 is the stable JSON/JSONL schema for step-boundary state.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
// Rational parts travel as decimal strings: numerators and denominators are
// unreduced and outgrow int64 within tens of steps.
type SnapshotV1 struct {
	RunID      string  `json:"run_id,omitempty"`
	Step       int     `json:"step"`
	Microtick  int     `json:"microtick"`
	UpsilonNum string  `json:"upsilon_num"`
	UpsilonDen string  `json:"upsilon_den"`
	BetaNum    string  `json:"beta_num"`
	BetaDen    string  `json:"beta_den"`
	KoppaNum   string  `json:"koppa_num"`
	KoppaDen   string  `json:"koppa_den"`
	Rho        int     `json:"rho"`
	Upsilon    float64 `json:"upsilon"`
	Beta       float64 `json:"beta"`
	Ratio      float64 `json:"ratio,omitempty"` // upsilon/beta; 0 when beta is 0
}

// EmissionV1 is the stable schema for trigger-history records. Same shape as
// SnapshotV1 minus the float conveniences; emissions are exact bookkeeping.
type EmissionV1 struct {
	RunID      string `json:"run_id,omitempty"`
	Step       int    `json:"step"`
	Microtick  int    `json:"microtick"`
	UpsilonNum string `json:"upsilon_num"`
	UpsilonDen string `json:"upsilon_den"`
	BetaNum    string `json:"beta_num"`
	BetaDen    string `json:"beta_den"`
	KoppaNum   string `json:"koppa_num"`
	KoppaDen   string `json:"koppa_den"`
	Rho        int    `json:"rho"`
}
