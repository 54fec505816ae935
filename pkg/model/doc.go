// Package model defines the data-driven tables behind the onboarding wizard.
// A RoleSchema lists ordered StepDefinitions; each step carries the
// FieldDefinitions collected on that screen and the VerificationItems that
// pair an attestation flag with a supporting document. Schemas are owned by
// the registry and treated as immutable once loaded.
//
// WizardState is the mutable session object. The wizard controller is its
// only writer; validation, verification, hydration and submission read it
// through the accessor helpers defined here so the "what counts as empty"
// rules live in a single place.
package model
