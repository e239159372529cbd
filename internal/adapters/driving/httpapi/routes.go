package httpapi

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.health)
	if s.metrics != nil {
		s.router.GET("/metrics", s.metrics.Handler())
	}

	v1 := s.router.Group("/v1")
	if s.limiter != nil {
		v1.Use(rateLimitMiddleware(s.limiter))
	}

	v1.GET("/models", s.listModels)
	v1.POST("/ingest", s.ingest)
	v1.POST("/chat/completions", s.chatCompletions)
	v1.POST("/:course_id/chat/completions", s.chatCompletions)

	courses := v1.Group("/courses")
	courses.GET("", s.listCourses)
	courses.GET("/:course_id", s.getCourse)
	courses.PUT("/:course_id", s.updateCourse)
	courses.GET("/:course_id/documents", s.listDocuments)
}
