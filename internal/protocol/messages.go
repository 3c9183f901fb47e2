package protocol

import (
	"encoding/json"

	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/diag"
)

// WELCOME (server -> client), sent once per connection.
type WelcomeMsg struct {
	Type               string             `json:"type"`
	ProtocolVersion    string             `json:"protocol_version"`
	SessionID          string             `json:"session_id"`
	ServerCapabilities ServerCapabilities `json:"server_capabilities"`
	Catalogs           CatalogDigests     `json:"catalogs"`
	Styles             []string           `json:"styles,omitempty"`
	Stages             []string           `json:"stages"`
}

type ServerCapabilities struct {
	AutoRepair bool `json:"auto_repair"`
	MaxBlocks  int  `json:"max_blocks"`
}

type CatalogDigests struct {
	BlocksDigest    string `json:"blocks_digest"`
	MaterialsDigest string `json:"materials_digest"`
	StylesDigest    string `json:"styles_digest,omitempty"`
}

// VALIDATE (client -> server). Structure stays raw until the schema check
// passes; DecodeStructure turns it into blocks once.
type ValidateMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	RequestID       string          `json:"request_id,omitempty"`
	Stage           string          `json:"stage,omitempty"`
	Style           string          `json:"style,omitempty"`
	AutoRepair      bool            `json:"auto_repair,omitempty"`
	Structure       json.RawMessage `json:"structure"`
}

// REPORT (server -> client)
type ReportMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	RequestID       string            `json:"request_id,omitempty"`
	StructureID     string            `json:"structure_id"`
	Stage           string            `json:"stage"`
	Valid           bool              `json:"valid"`
	Summary         SummaryDoc        `json:"summary"`
	Metadata        map[string]string `json:"metadata"`
	Connectivity    ConnectivityDoc   `json:"connectivity"`
	Functional      *FunctionalDoc    `json:"functional,omitempty"`
	Aesthetic       *AestheticDoc     `json:"aesthetic,omitempty"`
	Repairs         []RepairDoc       `json:"repairs,omitempty"`
	RepairsApplied  bool              `json:"repairs_applied"`
	Diagnostics     []diag.Issue      `json:"diagnostics"`
	Suggestions     []string          `json:"suggestions,omitempty"`
}

// SummaryDoc mirrors validation.Summary. PowerMargin is null when nothing
// consumes power.
type SummaryDoc struct {
	StructuralIntegrity float64  `json:"structural_integrity"`
	PowerMargin         *float64 `json:"power_margin"`
	Symmetry            float64  `json:"symmetry"`
	SymmetryType        string   `json:"symmetry_type"`
	Balance             float64  `json:"balance"`
	DesignLanguage      bool     `json:"design_language"`
}

type ConnectivityDoc struct {
	Valid        bool     `json:"valid"`
	Integrity    float64  `json:"integrity"`
	CoreID       string   `json:"core_id,omitempty"`
	CoreIndex    int      `json:"core_index"`
	CoreReason   string   `json:"core_reason,omitempty"`
	Total        int      `json:"total"`
	Connected    int      `json:"connected"`
	Disconnected []int    `json:"disconnected,omitempty"`
	MaxDistance  int      `json:"max_distance"`
	TooDistant   []int    `json:"too_distant,omitempty"`
	Method       string   `json:"adjacency_method,omitempty"`
	Edges        int      `json:"adjacency_edges"`
	Initial      *float64 `json:"initial_integrity,omitempty"`
}

type FunctionalDoc struct {
	Valid                     bool           `json:"valid"`
	Score                     float64        `json:"score"`
	Counts                    map[string]int `json:"counts"`
	EnginesConnectedToPower   bool           `json:"engines_connected_to_power"`
	ThrustersConnectedToPower bool           `json:"thrusters_connected_to_power"`
	ShieldsConnectedToPower   bool           `json:"shields_connected_to_power"`
	WeaponsConnectedToPower   bool           `json:"weapons_connected_to_power"`
	EnginesAtRear             bool           `json:"engines_at_rear"`
	GeneratorsInternal        bool           `json:"generators_internal"`
	ThrustersDistributed      bool           `json:"thrusters_distributed"`
	PowerSufficient           bool           `json:"power_sufficient"`
	TotalGeneration           float64        `json:"total_generation"`
	TotalConsumption          float64        `json:"total_consumption"`
	PowerRatio                *float64       `json:"power_ratio"`
	TotalThrust               float64        `json:"total_thrust"`
	TotalShield               float64        `json:"total_shield"`
	TotalMass                 float64        `json:"total_mass"`
	LengthAxis                string         `json:"length_axis"`
}

type AestheticDoc struct {
	Valid                       bool          `json:"valid"`
	Score                       float64       `json:"score"`
	Dimensions                  [3]float64    `json:"dimensions"`
	GeometricCenter             [3]float64    `json:"geometric_center"`
	CenterOfMass                [3]float64    `json:"center_of_mass"`
	Balance                     float64       `json:"balance"`
	SymmetryType                string        `json:"symmetry_type"`
	SymmetryScore               float64       `json:"symmetry_score"`
	SymmetryScores              []SymmetryDoc `json:"symmetry_scores"`
	ProportionsValid            bool          `json:"proportions_valid"`
	Aspects                     [3]*float64   `json:"aspects"`
	HasConsistentDesignLanguage bool          `json:"has_consistent_design_language"`
	FunctionalColorVariety      int           `json:"functional_color_variety"`
	Style                       string        `json:"style,omitempty"`
	SilhouetteMatches           *bool         `json:"silhouette_matches,omitempty"`
}

type SymmetryDoc struct {
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

// RepairDoc carries the filler in structure format so clients can append it
// as is.
type RepairDoc struct {
	Block    blocks.Block `json:"block"`
	FromID   string       `json:"from_id,omitempty"`
	FromIdx  int          `json:"from_index"`
	ToID     string       `json:"to_id,omitempty"`
	ToIdx    int          `json:"to_index"`
	Distance float64      `json:"distance"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewErrorMsg(requestID, code, message string) ErrorMsg {
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		RequestID:       requestID,
		Code:            code,
		Message:         message,
	}
}
