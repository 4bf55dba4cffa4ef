package staging

var phrases = map[ActionType]string{
	ActionFreeze:                  "FREEZE UPDATES",
	ActionUnfreeze:                "UNFREEZE UPDATES",
	ActionRuntimeSwitch:           "SWITCH RUNTIME",
	ActionOverridesApply:          "APPLY OVERRIDES",
	ActionIRTActivate:             "ACTIVATE IRT",
	ActionIRTDeactivate:           "DEACTIVATE IRT",
	ActionRankActivate:            "ACTIVATE RANK",
	ActionRankDeactivate:          "DEACTIVATE RANK",
	ActionGraphRevisionActivate:   "ACTIVATE GRAPH REVISION",
	ActionGraphRevisionDeactivate: "DEACTIVATE GRAPH REVISION",
}

// RequiredPhrase returns the text an operator must type to confirm an action of type t.
func RequiredPhrase(t ActionType) string {
	return phrases[t]
}

// PhraseMatches compares exactly; no trimming or case folding.
func PhraseMatches(required, typed string) bool {
	return required != "" && required == typed
}
