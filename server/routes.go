package server

func (s *Server) initRoutes() {
	prefix := s.config.GetAPIPrefix()

	s.RegisterRouteHandler("POST "+prefix+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+prefix+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+prefix+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteWhoAmI, ChainMiddleware(s.WhoAmIHandler(), s.APIMiddleware(s.RequireAuth())...))
}
