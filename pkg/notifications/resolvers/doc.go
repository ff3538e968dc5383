// Package resolvers provides scope resolvers backed by SQL databases, Redis
// sets and MongoDB collections.
//
// Every resolver returns a lazily evaluated notifications.Cursor, so large
// audiences are streamed into the bulk publisher instead of being loaded
// into memory:
//
//	core.RegisterScopeResolver("course",
//	    resolvers.NewSQLResolver(db, "SELECT user_id FROM enrollments WHERE course_id = $1", "course_id"), nil)
//	core.RegisterScopeResolver("cohort",
//	    resolvers.NewRedisSetResolver(rdb, "cohort:{cohort_id}:members"), nil)
//	core.RegisterScopeResolver("team",
//	    resolvers.NewMongoResolver(db.Collection("memberships"), "user_id", "team_id"), nil)
//
// Query parameters are read from the scope context, then from the instance
// context given at registration. A missing parameter fails with
// ErrMissingScopeParam.
package resolvers
