// Package mongo connects to MongoDB with the official v2 driver for the
// Mongo backed scope resolvers.
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.Database(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	core.RegisterScopeResolver("course", resolvers.NewMongoResolver(db.Collection("enrollments"),
//	    "course_id", "user_id"), nil)
//
// Connection failures match ErrFailedToConnectToMongo with errors.Is.
package mongo
