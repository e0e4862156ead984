package models

import "time"

// Election phase constants
const (
	PhaseSetup            = "setup"
	PhaseRegistration     = "registration"
	PhaseVoting           = "voting"
	PhaseEnded            = "ended"
	PhaseResultsCollected = "results_collected"
)

// District phase constants
const (
	DistrictSetup            = "setup"
	DistrictActive           = "active"
	DistrictEnded            = "ended"
	DistrictResultsSubmitted = "results_submitted"
)

// Scoring scale defaults and limits
const (
	DefaultScaleMin = 0
	DefaultScaleMax = 10
	MaxScaleRange   = 100
)

// Per-election capacity defaults
const (
	DefaultMaxCandidates = 10
	DefaultMaxDistricts  = 50
)

// Request types

type CreateElectionRequest struct {
	Title         string `json:"title"`
	MaxCandidates int    `json:"max_candidates,omitempty"`
	MaxDistricts  int    `json:"max_districts,omitempty"`
}

type AddCandidateRequest struct {
	Name  string `json:"name"`
	Party string `json:"party"`
}

type SetScaleRequest struct {
	MinScore int `json:"min_score"`
	MaxScore int `json:"max_score"`
}

type CreateDistrictRequest struct {
	Name string `json:"name"`
}

type RegisterVotersRequest struct {
	Addresses []string `json:"addresses"`
}

// One score per candidate, in candidate id order
type CastVoteRequest struct {
	Scores []int `json:"scores"`
}

type SubmitResultsRequest struct {
	Scores     []int `json:"scores"`
	VoteCounts []int `json:"vote_counts"`
	TotalVotes int   `json:"total_votes"`
}

// Response types

type CreateElectionResponse struct {
	ElectionID string `json:"election_id"`
	AdminKey   string `json:"admin_key"`
}

type AddCandidateResponse struct {
	CandidateID int `json:"candidate_id"`
}

type CreateDistrictResponse struct {
	DistrictID    int    `json:"district_id"`
	Address       string `json:"address"`
	CallbackToken string `json:"callback_token"`
}

type RegisterVotersResponse struct {
	Registered int `json:"registered"`
}

type ScaleResponse struct {
	MinScore int `json:"min_score"`
	MaxScore int `json:"max_score"`
}

type CastVoteResponse struct {
	BallotID string `json:"ballot_id"`
	Message  string `json:"message"`
}

type SubmitResultsResponse struct {
	ResultsSubmitted int  `json:"results_submitted"`
	Finalized        bool `json:"finalized"`
}

type PhaseResponse struct {
	Phase string `json:"phase"`
}

type EmergencyStopResponse struct {
	EmergencyStop bool `json:"emergency_stop"`
}

// Parallel arrays, one entry per candidate in id order, matching the
// shape downstream reporting tools consume.
type ElectionResultsResponse struct {
	Names       []string `json:"names"`
	Parties     []string `json:"parties"`
	TotalScores []int    `json:"total_scores"`
	TotalVotes  []int    `json:"total_votes"`
}

type WinnerResponse struct {
	CandidateID int    `json:"candidate_id"`
	Name        string `json:"name"`
	Party       string `json:"party"`
	TotalScore  int    `json:"total_score"`
}

type ElectionStatsResponse struct {
	Districts        int    `json:"districts"`
	VotersRegistered int    `json:"voters_registered"`
	VotesCast        int    `json:"votes_cast"`
	ResultsSubmitted int    `json:"results_submitted"`
	Phase            string `json:"phase"`
	TurnoutPct       int    `json:"turnout_pct"`
}

type DistrictStatusResponse struct {
	DistrictID      int    `json:"district_id"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	Phase           string `json:"phase"`
	ScaleMin        int    `json:"scale_min"`
	ScaleMax        int    `json:"scale_max"`
	CandidateCount  int    `json:"candidate_count"`
	RegisteredCount int    `json:"registered_count"`
	VoteCount       int    `json:"vote_count"`
	TurnoutPct      int    `json:"turnout_pct"`
	Active          bool   `json:"active"`
}

// Batch lookup across district ids; all-or-nothing, parallel arrays.
type DistrictBatchResponse struct {
	IDs       []int    `json:"ids"`
	Addresses []string `json:"addresses"`
	Names     []string `json:"names"`
	Phases    []string `json:"phases"`
	ScaleMins []int    `json:"scale_mins"`
	ScaleMaxs []int    `json:"scale_maxs"`
}

type DistrictAddressResponse struct {
	DistrictID int    `json:"district_id"`
	Address    string `json:"address"`
}

type DistrictTallyResponse struct {
	DistrictID int              `json:"district_id"`
	ScaleMin   int              `json:"scale_min"`
	ScaleMax   int              `json:"scale_max"`
	Ballots    int              `json:"ballots"`
	Candidates []CandidateTally `json:"candidates"`
}

// Domain types

type Election struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Phase            string     `json:"phase"`
	ScaleMin         int        `json:"scale_min"`
	ScaleMax         int        `json:"scale_max"`
	MaxCandidates    int        `json:"max_candidates"`
	MaxDistricts     int        `json:"max_districts"`
	EmergencyStop    bool       `json:"emergency_stop"`
	VotersRegistered int        `json:"voters_registered"`
	VotesCast        int        `json:"votes_cast"`
	ResultsSubmitted int        `json:"results_submitted"`
	WinnerID         *int       `json:"winner_id,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	FinalizedAt      *time.Time `json:"finalized_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type Candidate struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Party      string `json:"party"`
	TotalScore int    `json:"total_score"`
	TotalVotes int    `json:"total_votes"`
}

type ElectionWithCandidates struct {
	Election   Election    `json:"election"`
	Candidates []Candidate `json:"candidates"`
}

type Ballot struct {
	ID           string    `json:"id"`
	ElectionID   string    `json:"election_id"`
	DistrictID   int       `json:"district_id"`
	VoterAddress string    `json:"voter_address"`
	Scores       []int     `json:"scores"`
	CastAt       time.Time `json:"cast_at"`
	IPHash       *string   `json:"-"` // Never expose in JSON
	UserAgent    *string   `json:"-"` // Never expose in JSON
}

// District-local analytics for one candidate: the raw accumulators plus a
// normalized score on a 0-100 scale so districts with different scoring
// scales can be compared.
type CandidateTally struct {
	CandidateID     int     `json:"candidate_id"`
	Name            string  `json:"name"`
	ScoreSum        int     `json:"score_sum"`
	VoteCount       int     `json:"vote_count"`
	NormalizedScore int     `json:"normalized_score"`
	AverageScore    float64 `json:"average_score"`
}

// Write-once result record a district submits upward exactly once.
type DistrictResult struct {
	ElectionID  string     `json:"election_id"`
	DistrictID  int        `json:"district_id"`
	Submitted   bool       `json:"submitted"`
	Scores      []int      `json:"scores"`
	VoteCounts  []int      `json:"vote_counts"`
	TotalVotes  int        `json:"total_votes"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
