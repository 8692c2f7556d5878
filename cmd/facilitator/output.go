package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/services"
	"github.com/dustin/go-humanize"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// clock renders seconds as m:ss.
func clock(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}

	return fmt.Sprintf("%s%d:%02d", sign, seconds/60, seconds%60)
}

func printWorkshops(w io.Writer, workshops []*models.Workshop) error {
	t := newTable(w)
	fmt.Fprintln(t, "ID\tTITLE\tSTATUS\tBLOCKS\tMINUTES\tUPDATED")

	for _, workshop := range workshops {
		fmt.Fprintf(t, "%s\t%s\t%s\t%d\t%d\t%s\n",
			workshop.ID,
			workshop.DisplayTitle(),
			workshop.Status,
			len(workshop.Blocks),
			workshop.TotalMinutes(),
			humanize.Time(workshop.UpdatedAt))
	}

	return t.Flush()
}

func printSessions(w io.Writer, sessions []*models.Session) error {
	t := newTable(w)
	fmt.Fprintln(t, "ID\tTITLE\tCODE\tSTATUS\tRUNNING\tELAPSED\tPARTICIPANTS\tSTARTED")

	for _, session := range sessions {
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
			session.ID,
			session.Title,
			session.JoinCode,
			session.Status,
			session.IsRunning,
			clock(session.ElapsedTime),
			humanize.Comma(int64(len(session.Participants))),
			humanize.Time(session.StartedAt))
	}

	return t.Flush()
}

func printSession(w io.Writer, session *models.Session) {
	current := "-"
	if session.CurrentBlockID != nil {
		current = *session.CurrentBlockID
	}

	fmt.Fprintf(w, "%s  %s  code=%s  status=%s  running=%t  block=%s  elapsed=%s\n",
		session.ID, session.Title, session.JoinCode, session.Status, session.IsRunning, current, clock(session.ElapsedTime))
}

func printHistory(w io.Writer, records []*models.SessionRecord, now time.Time) error {
	t := newTable(w)
	fmt.Fprintln(t, "ID\tWORKSHOP\tBLOCKS\tSTATUS\tSTARTED\tDURATION")

	for _, record := range records {
		duration := "running for " + humanize.RelTime(record.StartedAt, now, "", "")
		if record.DurationSec != nil {
			duration = clock(*record.DurationSec)
		}

		fmt.Fprintf(t, "%s\t%s\t%d\t%s\t%s\t%s\n",
			record.ID,
			record.WorkshopTitle,
			record.BlocksCount,
			record.Status,
			humanize.Time(record.StartedAt),
			strings.TrimSpace(duration))
	}

	return t.Flush()
}

// printScreen renders one projector frame.
func printScreen(w io.Writer, screen *services.Screen) {
	block := "no block selected"
	if screen.CurrentBlock != nil {
		block = fmt.Sprintf("%s (%s)", screen.CurrentBlock.Title, screen.CurrentBlock.Type)
	}

	state := "paused"
	if screen.IsRunning {
		state = "running"
	}

	fmt.Fprintf(w, "[%s] %s | %s | %s elapsed, %s left | join with %s | thinking %d, finished %d, help %d\n",
		state,
		screen.Title,
		block,
		clock(screen.BlockSeconds),
		clock(screen.RemainingSeconds),
		screen.JoinCode,
		screen.ParticipantCounts[models.ParticipantStatusThinking],
		screen.ParticipantCounts[models.ParticipantStatusFinished],
		screen.ParticipantCounts[models.ParticipantStatusHelpNeeded])
}
