package cel

// RuleExpressionExamples lists risk rules that operators commonly configure.
var RuleExpressionExamples = map[string]string{
	"fallback_switch":     `action_type == "RUNTIME_SWITCH" && payload.profile == "V0_FALLBACK"`,
	"leave_primary":       `current_profile == "V1_PRIMARY" && action_type == "RUNTIME_SWITCH"`,
	"irt_activation":      `action_type == "IRT_ACTIVATE"`,
	"any_graph_change":    `subsystem == "graph_revision"`,
	"activation_phase":    `phase == 3 && action_type.endsWith("_ACTIVATE")`,
	"ranking_override":    `action_type == "OVERRIDES_APPLY" && has(payload.overrides) && "ranking" in payload.overrides`,
	"named_cohort":        `has(payload.cohort_key) && payload.cohort_key.startsWith("prod-")`,
	"unfreeze":            `action_type == "UNFREEZE"`,
	"profile_or_override": `action_type in ["RUNTIME_SWITCH", "OVERRIDES_APPLY"]`,
}
