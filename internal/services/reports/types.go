package reports

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion identifies which report layout a payload carries. The
// backend has shipped three layouts over time; every payload is classified
// exactly once, in DecodeReportData, and tagged from then on. Nothing
// downstream inspects section presence to guess the version.
type SchemaVersion string

const (
	// SchemaV1 is the original 7-section layout (summary, direction,
	// concerns, medical, proposal, options, recovery)
	SchemaV1 SchemaVersion = "v1"
	// SchemaV3 is the 9-section layout without a cost estimate
	SchemaV3 SchemaVersion = "v3"
	// SchemaV4 is the current 10-section layout and the only one editable
	SchemaV4 SchemaVersion = "v4"
)

// Editable reports whether reports of this version may be edited. Older
// layouts render read-only; only the current one round-trips through the
// edit endpoint.
func (v SchemaVersion) Editable() bool {
	return v == SchemaV4
}

// Sections of the v3/v4 layouts

type KeySummary struct {
	Points []string `json:"points"`
}

type CauseAnalysis struct {
	Intro      string   `json:"intro"`
	Causes     []string `json:"causes"`
	Conclusion string   `json:"conclusion"`
}

type RecommendationGroup struct {
	Label string   `json:"label"`
	Items []string `json:"items"`
}

type Recommendation struct {
	Primary   RecommendationGroup `json:"primary"`
	Secondary RecommendationGroup `json:"secondary"`
	Goal      string              `json:"goal"`
}

type RecoveryStep struct {
	Period string `json:"period"`
	Detail string `json:"detail"`
}

type Recovery struct {
	Timeline []RecoveryStep `json:"timeline"`
	Note     string         `json:"note"`
}

// PointList backs the scar, precaution and risk sections
type PointList struct {
	Points []string `json:"points"`
}

// CostEstimate only carries amounts the counselor actually mentioned; the
// backend leaves Items empty otherwise
type CostEstimate struct {
	Items    []string `json:"items"`
	Includes string   `json:"includes"`
	Note     string   `json:"note"`
}

type VisitDate struct {
	Date string `json:"date"`
	Note string `json:"note"`
}

type ClosingMessage struct {
	Paragraphs   []string `json:"paragraphs"`
	FinalSummary string   `json:"final_summary"`
}

// Sections of the legacy v1 layout

type LegacySummary struct {
	Text   string   `json:"text"`
	Points []string `json:"points"`
}

type LegacyDirection struct {
	Desired []string `json:"desired"`
	Quote   string   `json:"quote"`
}

type LegacyConcernPoint struct {
	Title string `json:"title"`
	Sub   string `json:"sub"`
}

type LegacyConcerns struct {
	Points     []LegacyConcernPoint `json:"points"`
	Supplement string               `json:"supplement"`
}

type LegacyExplanation struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Title string `json:"title"`
}

type LegacyMedical struct {
	Explanations []LegacyExplanation `json:"explanations"`
}

type LegacyProposalStep struct {
	Step  string `json:"step"`
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

type LegacyProposal struct {
	Steps []LegacyProposalStep `json:"steps"`
}

type LegacyOption struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

type LegacyOptions struct {
	Recommended LegacyOption `json:"recommended"`
	Optional    LegacyOption `json:"optional"`
	Unnecessary LegacyOption `json:"unnecessary"`
	Comment     string       `json:"comment"`
}

type LegacyRecoveryInfo struct {
	Period string `json:"period"`
	Detail string `json:"detail"`
}

type LegacyRecovery struct {
	Info    []LegacyRecoveryInfo `json:"info"`
	Closing string               `json:"closing"`
}

// LegacyReport holds a v1 payload as a whole. It is never edited, only
// rendered.
type LegacyReport struct {
	Summary   *LegacySummary   `json:"section1_summary"`
	Direction *LegacyDirection `json:"section2_direction"`
	Concerns  *LegacyConcerns  `json:"section3_concerns"`
	Medical   *LegacyMedical   `json:"section4_medical"`
	Proposal  *LegacyProposal  `json:"section5_proposal"`
	Options   *LegacyOptions   `json:"section6_options"`
	Recovery  *LegacyRecovery  `json:"section7_recovery"`
}

// ReportData is the decoded, version-tagged report payload. Section
// pointers are nil when the version does not carry them (CostEstimate is
// v4-only, Legacy is v1-only); renderers tolerate absent sections.
type ReportData struct {
	SchemaVersion SchemaVersion `json:"schema_version"`
	Title         string        `json:"title"`
	Date          string        `json:"date"`

	KeySummary     *KeySummary     `json:"key_summary,omitempty"`
	CauseAnalysis  *CauseAnalysis  `json:"cause_analysis,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Recovery       *Recovery       `json:"recovery,omitempty"`
	ScarInfo       *PointList      `json:"scar_info,omitempty"`
	Precautions    *PointList      `json:"precautions,omitempty"`
	Risks          *PointList      `json:"risks,omitempty"`
	CostEstimate   *CostEstimate   `json:"cost_estimate,omitempty"`
	VisitDate      *VisitDate      `json:"visit_date,omitempty"`
	Closing        *ClosingMessage `json:"closing,omitempty"`

	Legacy *LegacyReport `json:"legacy,omitempty"`
}

// reportWire mirrors every key any backend version has ever emitted. Only
// the decoder sees this shape.
type reportWire struct {
	SchemaVersion SchemaVersion `json:"schema_version"`
	Title         string        `json:"title"`
	Date          string        `json:"date"`

	KeySummary     *KeySummary     `json:"section1_key_summary"`
	CauseAnalysis  *CauseAnalysis  `json:"section2_cause_analysis"`
	Recommendation *Recommendation `json:"section3_recommendation"`
	Recovery       *Recovery       `json:"section4_recovery"`
	ScarInfo       *PointList      `json:"section5_scar_info"`
	Precautions    *PointList      `json:"section6_precautions"`
	Risks          *PointList      `json:"section7_risks"`

	CostEstimate *CostEstimate   `json:"section8_cost_estimate"`
	VisitDateV4  *VisitDate      `json:"section9_visit_date"`
	ClosingV4    *ClosingMessage `json:"section10_ippeo_message"`

	// v3 put the visit date and closing one slot earlier
	VisitDateV3 *VisitDate      `json:"section8_visit_date"`
	ClosingV3   *ClosingMessage `json:"section9_ippeo_message"`

	// v1 legacy keys
	LegacySummary   *LegacySummary   `json:"section1_summary"`
	LegacyDirection *LegacyDirection `json:"section2_direction"`
	LegacyConcerns  *LegacyConcerns  `json:"section3_concerns"`
	LegacyMedical   *LegacyMedical   `json:"section4_medical"`
	LegacyProposal  *LegacyProposal  `json:"section5_proposal"`
	LegacyOptions   *LegacyOptions   `json:"section6_options"`
	LegacyRecovery  *LegacyRecovery  `json:"section7_recovery"`
}

// DecodeReportData classifies and decodes one report payload. Tagged
// payloads are taken at their word; untagged ones are classified by shape
// here and nowhere else. An unrecognizable payload is an error rather than
// a half-rendered report.
func DecodeReportData(raw []byte) (*ReportData, error) {
	var wire reportWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse report payload: %w", err)
	}

	version := wire.SchemaVersion
	if version == "" {
		switch {
		case wire.KeySummary != nil && (wire.ClosingV4 != nil || wire.CostEstimate != nil):
			version = SchemaV4
		case wire.KeySummary != nil:
			version = SchemaV3
		case wire.LegacySummary != nil:
			version = SchemaV1
		default:
			return nil, fmt.Errorf("unrecognized report payload shape")
		}
	}

	data := &ReportData{
		SchemaVersion: version,
		Title:         wire.Title,
		Date:          wire.Date,
	}

	switch version {
	case SchemaV1:
		data.Legacy = &LegacyReport{
			Summary:   wire.LegacySummary,
			Direction: wire.LegacyDirection,
			Concerns:  wire.LegacyConcerns,
			Medical:   wire.LegacyMedical,
			Proposal:  wire.LegacyProposal,
			Options:   wire.LegacyOptions,
			Recovery:  wire.LegacyRecovery,
		}
	case SchemaV3:
		data.KeySummary = wire.KeySummary
		data.CauseAnalysis = wire.CauseAnalysis
		data.Recommendation = wire.Recommendation
		data.Recovery = wire.Recovery
		data.ScarInfo = wire.ScarInfo
		data.Precautions = wire.Precautions
		data.Risks = wire.Risks
		data.VisitDate = wire.VisitDateV3
		data.Closing = wire.ClosingV3
	case SchemaV4:
		data.KeySummary = wire.KeySummary
		data.CauseAnalysis = wire.CauseAnalysis
		data.Recommendation = wire.Recommendation
		data.Recovery = wire.Recovery
		data.ScarInfo = wire.ScarInfo
		data.Precautions = wire.Precautions
		data.Risks = wire.Risks
		data.CostEstimate = wire.CostEstimate
		data.VisitDate = wire.VisitDateV4
		data.Closing = wire.ClosingV4
	default:
		return nil, fmt.Errorf("unsupported report schema version %q", version)
	}

	return data, nil
}

// EncodeReportData re-emits a decoded payload in its version's wire layout,
// always carrying the schema_version tag so future reads skip shape
// classification
func EncodeReportData(data *ReportData) (map[string]interface{}, error) {
	out := map[string]interface{}{
		"schema_version": data.SchemaVersion,
		"title":          data.Title,
		"date":           data.Date,
	}

	// Absent sections go out as explicit nulls, same as the backend emits
	put := func(key string, v interface{}) {
		out[key] = v
	}

	switch data.SchemaVersion {
	case SchemaV1:
		if data.Legacy == nil {
			return nil, fmt.Errorf("legacy report payload has no sections")
		}
		put("section1_summary", data.Legacy.Summary)
		put("section2_direction", data.Legacy.Direction)
		put("section3_concerns", data.Legacy.Concerns)
		put("section4_medical", data.Legacy.Medical)
		put("section5_proposal", data.Legacy.Proposal)
		put("section6_options", data.Legacy.Options)
		put("section7_recovery", data.Legacy.Recovery)
	case SchemaV3:
		put("section1_key_summary", data.KeySummary)
		put("section2_cause_analysis", data.CauseAnalysis)
		put("section3_recommendation", data.Recommendation)
		put("section4_recovery", data.Recovery)
		put("section5_scar_info", data.ScarInfo)
		put("section6_precautions", data.Precautions)
		put("section7_risks", data.Risks)
		put("section8_visit_date", data.VisitDate)
		put("section9_ippeo_message", data.Closing)
	case SchemaV4:
		put("section1_key_summary", data.KeySummary)
		put("section2_cause_analysis", data.CauseAnalysis)
		put("section3_recommendation", data.Recommendation)
		put("section4_recovery", data.Recovery)
		put("section5_scar_info", data.ScarInfo)
		put("section6_precautions", data.Precautions)
		put("section7_risks", data.Risks)
		put("section8_cost_estimate", data.CostEstimate)
		put("section9_visit_date", data.VisitDate)
		put("section10_ippeo_message", data.Closing)
	default:
		return nil, fmt.Errorf("unsupported report schema version %q", data.SchemaVersion)
	}

	return out, nil
}

// ReportStatus is a report's review state
type ReportStatus string

const (
	ReportDraft    ReportStatus = "draft"
	ReportApproved ReportStatus = "approved"
	ReportRejected ReportStatus = "rejected"
	ReportSent     ReportStatus = "sent"
)

// CustomerRef is the customer slice the backend joins onto report rows
type CustomerRef struct {
	CustomerName   string `json:"customer_name"`
	CustomerEmail  string `json:"customer_email"`
	CustomerLineID string `json:"customer_line_id"`
	Classification string `json:"classification"`
	CTALevel       string `json:"cta_level"`
}

// Report is one report row with its payload already decoded and tagged
type Report struct {
	ID             string       `json:"id"`
	ConsultationID string       `json:"consultation_id"`
	Data           *ReportData  `json:"data"`
	DataKo         *ReportData  `json:"data_ko"`
	ReviewCount    int          `json:"review_count"`
	ReviewPassed   bool         `json:"review_passed"`
	ReviewNotes    string       `json:"review_notes"`
	AccessToken    string       `json:"access_token"`
	EmailSentAt    string       `json:"email_sent_at"`
	EmailOpenedAt  string       `json:"email_opened_at"`
	Status         ReportStatus `json:"status"`
	CreatedAt      string       `json:"created_at"`
	UpdatedAt      string       `json:"updated_at"`
	Customer       *CustomerRef `json:"customer"`
}

// PublicReport is what a customer sees through a share link
type PublicReport struct {
	Data         *ReportData `json:"data"`
	CustomerName string      `json:"customer_name"`
}
