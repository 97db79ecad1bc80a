package authz

import (
	"github.com/buildhubhq/buildhub/internal/domain/profile"
)

type Route string

const (
	RouteDashboard    Route = "/dashboard"
	RouteProfileSetup Route = "/profile-setup"
)

// DecideRoute sends a freshly hydrated profile to the dashboard only when
// setup is complete (username, display name and bio all present).
func DecideRoute(p profile.UserProfile) Route {
	if profile.Complete(p) {
		return RouteDashboard
	}

	return RouteProfileSetup
}

// SetupProfile picks the profile the setup form pre-fills from: the hydrated
// one when the fetch produced anything, otherwise a fresh default carrying
// only the email and the user role.
func SetupProfile(hydrated *profile.UserProfile, email string) profile.UserProfile {
	if hydrated != nil {
		return *hydrated
	}

	return profile.DefaultForEmail(email)
}
