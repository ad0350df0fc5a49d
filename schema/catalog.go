package schema

// GateInfo is the static metadata of a gate.
type GateInfo struct {
	ID       GateID       `json:"id"`
	Name     string       `json:"name"`
	Group    string       `json:"group"`
	Category GateCategory `json:"category"`
	Source   string       `json:"source"`
	Visible  bool         `json:"visible"`
}

// GateCatalog lists every gate in evaluation order.
var GateCatalog = []GateInfo{
	{ID: GateHighVulnerability, Name: "High Vulnerability", Group: "Security", Category: NonEnforcing, Source: "Snyk", Visible: true},
	{ID: GateMediumVulnerability, Name: "Medium Vulnerability", Group: "Security", Category: NonEnforcing, Source: "Snyk", Visible: true},
	{ID: GateCriticalVulnerability, Name: "Critical Vulnerability", Group: "Security", Category: NonEnforcing, Source: "Snyk", Visible: true},
	{ID: GateDeveloperThresholds, Name: "Developer Thresholds", Group: "Quality", Category: NonEnforcing, Source: "SonarQube", Visible: true},
	{ID: GateCodeQuality, Name: "Code Quality", Group: "Quality", Category: Enforcing, Source: "SonarQube", Visible: true},
	{ID: GateApprovedParameters, Name: "Approved Sonar Params", Group: "Quality", Category: Enforcing, Source: "GitHub Actions", Visible: false},
	{ID: GateExpressLane, Name: "Express Lane Quality", Group: "Quality", Category: NonEnforcing, Source: "SonarQube", Visible: true},
	{ID: GateReleaseBranch, Name: "Release Branch", Group: "Governance", Category: Enforcing, Source: "GitHub Actions", Visible: false},
	{ID: GatePolicyDecision, Name: "Deployment Policy", Group: "Governance", Category: Enforcing, Source: "PDP", Visible: true},
}

// AllGateIDs lists every gate identifier in evaluation order.
var AllGateIDs = func() []GateID {
	ids := make([]GateID, 0, len(GateCatalog))
	for _, info := range GateCatalog {
		ids = append(ids, info.ID)
	}
	return ids
}()

// LookupGate returns the catalog entry for a gate.
func LookupGate(id GateID) (GateInfo, bool) {
	for _, info := range GateCatalog {
		if info.ID == id {
			return info, true
		}
	}
	return GateInfo{}, false
}

// Category returns the static category of the gate. Unknown gates are advisory.
func (id GateID) Category() GateCategory {
	if info, ok := LookupGate(id); ok {
		return info.Category
	}
	return NonEnforcing
}

// Position returns the index of the gate in evaluation order, or -1 when unknown.
func (id GateID) Position() int {
	for i, info := range GateCatalog {
		if info.ID == id {
			return i
		}
	}
	return -1
}
