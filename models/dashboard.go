package models

type DashboardStats struct {
	TeamsTotal         int `json:"teams_total"`
	MembershipsTotal   int `json:"memberships_total"`
	OpenDesignRequests int `json:"open_design_requests"`
	OrdersInProduction int `json:"orders_in_production"`
}

// InstitutionOverview is the single-payload response for the
// institution landing screen.
type InstitutionOverview struct {
	Institution    *Team           `json:"institution"`
	Programs       []SportProgram  `json:"programs"`
	OpenOrders     []Order         `json:"open_orders"`
	RecentActivity []DesignRequest `json:"recent_activity"`
}
