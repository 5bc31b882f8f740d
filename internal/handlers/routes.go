package handlers

import "net/http"

// Register mounts the API routes on mux. Chat routes require a login.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)

	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("GET /auth/logout", h.Logout)

	mux.HandleFunc("POST /user", h.CreateUser)
	mux.HandleFunc("GET /user", h.ListUsers)
	mux.HandleFunc("GET /user/{username}", h.GetUser)
	mux.HandleFunc("PUT /user/{username}", h.UpdateUser)
	mux.HandleFunc("DELETE /user/{username}", h.DeleteUser)

	mux.HandleFunc("POST /project", h.CreateProject)
	mux.HandleFunc("GET /project", h.ListProjects)
	mux.HandleFunc("GET /project/{title}", h.GetProject)
	mux.HandleFunc("GET /project/{title}/summary", h.ProjectSummary)
	mux.HandleFunc("PUT /project/{title}", h.UpdateProject)
	mux.HandleFunc("DELETE /project/{title}", h.DeleteProject)

	mux.HandleFunc("POST /contribution", h.CreateContribution)
	mux.HandleFunc("GET /contribution", h.ListContributions)
	mux.HandleFunc("GET /contribution/{id}", h.GetContribution)
	mux.HandleFunc("PUT /contribution/{id}", h.UpdateContribution)
	mux.HandleFunc("DELETE /contribution/{id}", h.DeleteContribution)

	mux.HandleFunc("POST /vote", h.CreateVote)
	mux.HandleFunc("GET /vote", h.ListVotes)
	mux.HandleFunc("GET /vote/{id}", h.GetVote)
	mux.HandleFunc("PUT /vote/{id}", h.UpdateVote)
	mux.HandleFunc("DELETE /vote/{id}", h.DeleteVote)

	mux.HandleFunc("POST /budget", h.CreateBudget)
	mux.HandleFunc("GET /budget", h.ListBudgets)
	mux.HandleFunc("GET /budget/{id}", h.GetBudget)
	mux.HandleFunc("PUT /budget/{id}", h.UpdateBudget)
	mux.HandleFunc("DELETE /budget/{id}", h.DeleteBudget)

	mux.HandleFunc("POST /expense", h.CreateExpense)
	mux.HandleFunc("GET /expense", h.ListExpenses)
	mux.HandleFunc("GET /expense/stats", h.Statistics)
	mux.HandleFunc("GET /expense/{id}", h.GetExpense)
	mux.HandleFunc("PUT /expense/{id}", h.UpdateExpense)
	mux.HandleFunc("DELETE /expense/{id}", h.DeleteExpense)

	protected := func(hf http.HandlerFunc) http.Handler {
		return h.AuthMiddleware(hf)
	}
	mux.Handle("POST /chat/start", protected(h.StartChat))
	mux.Handle("POST /chat/message/{session_id}", protected(h.ChatMessage))
	mux.Handle("GET /chat/history/{session_id}", protected(h.ChatHistory))
	mux.Handle("POST /chat/end/{session_id}", protected(h.EndChat))
}
