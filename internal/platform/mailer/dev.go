package mailer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/diagnosis/quickstay/pkg/logger"
)

// DevTransport prints messages instead of sending them.
type DevTransport struct {
	out io.Writer
}

func NewDevTransport() *DevTransport {
	return &DevTransport{out: os.Stdout}
}

func (d *DevTransport) Send(ctx context.Context, msg Message) error {
	logger.InfoContext(ctx, "[DEV MAIL] Email captured",
		"to", msg.ToEmail,
		"subject", msg.Subject,
	)

	fmt.Fprintf(d.out, "\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"EMAIL (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: %s\n"+
		"\n"+
		"%s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		msg.ToEmail, msg.ToName, msg.Subject, msg.Text)

	return nil
}

var _ Transport = (*DevTransport)(nil)
