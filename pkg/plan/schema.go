// Package plan defines the plan document: an ordered sequence of tool
// invocations plus optional "skill" usage metadata, and the strict loader
// that decodes it from YAML or JSON.
package plan

// APIVersion identifies the plan document shape this package decodes.
const APIVersion = "plan/v1"

// Plan is the top-level document handed to the executor.
type Plan struct {
	APIVersion string `yaml:"apiVersion,omitempty" json:"apiVersion,omitempty"`
	ID         string `yaml:"id,omitempty"         json:"id,omitempty"`
	Name       string `yaml:"name,omitempty"       json:"name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Steps      []Step `yaml:"steps"                json:"steps"`

	// Skill is optional usage-guidance metadata. It is never consulted by
	// the executor; it exists so a plan can double as a documented
	// "skill" for an external agent to choose among.
	Skill *SkillMeta `yaml:"skill,omitempty" json:"skill,omitempty"`
}

// Step is one entry in a plan.
type Step struct {
	ID              string         `yaml:"id"                         json:"id"`
	Tool            string         `yaml:"tool"                       json:"tool"`
	Description     string         `yaml:"description,omitempty"      json:"description,omitempty"`
	Args            map[string]any `yaml:"args,omitempty"             json:"args,omitempty"`
	RunIf           string         `yaml:"run_if,omitempty"           json:"run_if,omitempty"`
	InterventionIf  string         `yaml:"intervention_if,omitempty"  json:"intervention_if,omitempty"`
	KeyFinding      bool           `yaml:"key_finding,omitempty"      json:"key_finding,omitempty"`
}

// SkillTrigger names when an external agent should consider this plan.
type SkillTrigger struct {
	Keywords      []string `yaml:"keywords,omitempty"       json:"keywords,omitempty"`
	UserIntents   []string `yaml:"user_intents,omitempty"   json:"user_intents,omitempty"`
	Prerequisites []string `yaml:"prerequisites,omitempty"  json:"prerequisites,omitempty"`
	AvoidWhen     []string `yaml:"avoid_when,omitempty"     json:"avoid_when,omitempty"`
}

// SkillMeta is advisory metadata describing when and how a plan should be
// selected by an external agent. The executor never reads it.
type SkillMeta struct {
	WhenToUse       string       `yaml:"when_to_use,omitempty"       json:"when_to_use,omitempty"`
	ExpectedOutcome string       `yaml:"expected_outcome,omitempty"  json:"expected_outcome,omitempty"`
	Triggers        SkillTrigger `yaml:"triggers,omitempty"          json:"triggers,omitempty"`
	DebugTips       []string     `yaml:"debug_tips,omitempty"        json:"debug_tips,omitempty"`
	FallbackTools   []string     `yaml:"fallback_tools,omitempty"    json:"fallback_tools,omitempty"`
}

// IsSkill reports whether the plan carries any usage-guidance metadata,
// i.e. is informally a "skill" rather than a plain plan.
func (p *Plan) IsSkill() bool {
	return p.Skill != nil && (p.Skill.WhenToUse != "" || p.Skill.ExpectedOutcome != "" ||
		len(p.Skill.Triggers.Keywords) > 0 || len(p.Skill.Triggers.UserIntents) > 0 ||
		len(p.Skill.Triggers.Prerequisites) > 0 || len(p.Skill.Triggers.AvoidWhen) > 0 ||
		len(p.Skill.DebugTips) > 0 || len(p.Skill.FallbackTools) > 0)
}
