package entities

// DashboardStats backs the overview cards of the dashboard
type DashboardStats struct {
	TotalPatients        int                `json:"total_patients"`
	TodayAppointments    int                `json:"today_appointments"`
	UpcomingAppointments int                `json:"upcoming_appointments"`
	UnreadMessages       int                `json:"unread_messages"`
	NextAppointments     []*AppointmentView `json:"next_appointments"`
}
