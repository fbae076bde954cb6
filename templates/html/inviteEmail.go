package templates

import (
	"fmt"
	"html"
)

// RenderEventInviteEmail generates HTML for a role-wide event invitation.
// The event link opens the event in the mobile app.
func RenderEventInviteEmail(name, eventTitle, eventLink string) string {
	safeName := html.EscapeString(name)
	safeTitle := html.EscapeString(eventTitle)

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>Event Invitation</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f4f7; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background-color: #3b4d2d; padding: 40px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 24px; font-weight: 700; }
    .content { padding: 40px 30px; color: #1f2937; line-height: 1.6; font-size: 15px; }
    .button { display: inline-block; padding: 12px 24px; background-color: #3b4d2d; color: #fff; text-decoration: none; border-radius: 4px; font-weight: 600; }
    .footer { padding: 30px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid #e5e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>You're invited</h1>
    </div>
    <div class="content">
      <p>Hi %s,</p>
      <p>You have been invited to <strong>%s</strong>.</p>
      <p><a class="button" href="%s">View event</a></p>
    </div>
    <div class="footer">
      <p>&copy; Mercury Unit Management</p>
    </div>
  </div>
</body>
</html>`, safeName, safeTitle, eventLink)
}
