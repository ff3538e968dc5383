// Package assets serves client template assets from S3 or any S3
// compatible store.
//
//	src, err := assets.NewS3Source(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	renderer := notifications.NewClientTemplateRenderer(src, "templates/reply.html",
//	    notifications.WithLanguageVariant("fr", "templates/reply.fr.html"))
//
// Missing objects fail with ErrAssetNotFound; the renderer reports them as
// notifications.ErrRender and retries on the next render.
package assets
