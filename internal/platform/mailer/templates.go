package mailer

import (
	"fmt"
	"html"
	"time"
)

const footer = `<p style="margin-top:20px;font-size:12px;color:#666;">&copy; QuickStay. All rights reserved.</p>`

func otpMessage(toEmail, code, name string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())
	return Message{
		ToEmail: toEmail,
		ToName:  name,
		Subject: "QuickStay - Password Reset OTP",
		Text: fmt.Sprintf("Hello %s,\n\nYou requested to reset your password. Your OTP code is: %s\n\n"+
			"This code will expire in %d minutes.\nIf you didn't request this, please ignore this email.",
			name, code, minutes),
		HTML: fmt.Sprintf(`
		<h2>Password Reset Request</h2>
		<p>Hello %s,</p>
		<p>You requested to reset your password. Use the OTP code below:</p>
		<div style="background:#f4f4f4;padding:20px;text-align:center;font-size:24px;font-weight:bold;letter-spacing:5px;">%s</div>
		<p><strong>This code will expire in %d minutes.</strong></p>
		<p>If you didn't request this, please ignore this email.</p>
		%s`, html.EscapeString(name), html.EscapeString(code), minutes, footer),
	}
}

func welcomeMessage(toEmail, name string) Message {
	return Message{
		ToEmail: toEmail,
		ToName:  name,
		Subject: "Welcome to QuickStay!",
		Text: fmt.Sprintf("Hello %s,\n\nThank you for registering with QuickStay. Your account has been successfully created!\n"+
			"You can now browse available rooms, make bookings, manage your profile and leave reviews.", name),
		HTML: fmt.Sprintf(`
		<h1 style="background:#4F46E5;color:white;padding:20px;text-align:center;">Welcome to QuickStay!</h1>
		<p>Hello %s,</p>
		<p>Thank you for registering with QuickStay. Your account has been successfully created!</p>
		<p>You can now:</p>
		<ul>
			<li>Browse available rooms</li>
			<li>Make bookings</li>
			<li>Manage your profile</li>
			<li>Leave reviews</li>
		</ul>
		<p>If you have any questions, feel free to contact our support team.</p>
		%s`, html.EscapeString(name), footer),
	}
}

func resetConfirmationMessage(toEmail, name string, at time.Time) Message {
	when := at.Format("January 02, 2006 at 03:04 PM UTC")
	return Message{
		ToEmail: toEmail,
		ToName:  name,
		Subject: "QuickStay - Password Reset Successful",
		Text: fmt.Sprintf("Hello %s,\n\nYour password has been successfully reset on %s.\n\n"+
			"If you didn't reset your password, please contact our support team immediately.", name, when),
		HTML: fmt.Sprintf(`
		<h1 style="background:#4F46E5;color:white;padding:30px;text-align:center;">Password Reset Successful</h1>
		<p>Hello %s,</p>
		<p>Your password has been successfully reset on <strong>%s</strong>.</p>
		<div style="background:#fff;border-left:4px solid #4F46E5;padding:15px;margin:20px 0;">
			<strong>What happened:</strong>
			<p>Your QuickStay account password was changed. You can now log in with your new password.</p>
		</div>
		<div style="background:#FEF3C7;border-left:4px solid #F59E0B;padding:15px;margin:20px 0;">
			<strong>Didn't make this change?</strong>
			<p>If you didn't reset your password, please contact our support team immediately or reset your password again to secure your account.</p>
		</div>
		<p style="font-size:12px;color:#666;">This is an automated security notification from QuickStay.</p>
		%s`, html.EscapeString(name), when, footer),
	}
}
