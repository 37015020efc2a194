package entity

// Intent is the closed set of conversation intents the concierge
// understands. Intents are derived per message and never persisted.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentCompanyInfo  Intent = "company_info"
	IntentPricing      Intent = "pricing"
	IntentFeatures     Intent = "features"
	IntentSupport      Intent = "support"
	IntentRegistration Intent = "registration"
	IntentSearchHelp   Intent = "search_help"
	IntentGeneral      Intent = "general"
)
