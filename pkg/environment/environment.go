// Package environment names the deployment environments the app runs in
// and the helpers the rest of the code uses to branch on them.
package environment

// Environment represents the application deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Parse maps the APP_ENV value, including common short forms, onto a
// known environment. Anything unrecognized is treated as development so
// a missing variable never accidentally enables production behavior.
func Parse(s string) Environment {
	switch s {
	case string(Production), "prod":
		return Production
	case string(Staging), "stage":
		return Staging
	default:
		return Development
	}
}

func (e Environment) IsProduction() bool  { return e == Production }
func (e Environment) IsStaging() bool     { return e == Staging }
func (e Environment) IsDevelopment() bool { return e == Development }
