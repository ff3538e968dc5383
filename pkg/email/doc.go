// Package email sends transactional email through Postmark, or writes it to
// disk during development.
//
//	sender, err := email.NewSender(cfg)
//	if err != nil {
//	    return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "learner@example.com",
//	    Subject:  "New reply to your post",
//	    BodyHTML: html,
//	    Tag:      "open-edx.lms.discussions.reply-to-thread",
//	})
//
// Parameter failures match ErrInvalidParams and carry
// validator.ValidationErrors. Delivery failures match ErrFailedToSendEmail.
//
// The templates subpackage holds the HTML shell notification emails are
// wrapped in.
package email
