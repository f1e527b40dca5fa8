package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"classroom/client"
	v1 "classroom/pkg/api/v1"
)

type app struct {
	client *client.Client
	sess   *client.Session
	term   *terminal
	out    io.Writer
	in     io.Reader
}

type command struct {
	summary string
	// guard is checked after the session is restored; nil means the command
	// runs signed out too.
	guard client.Guard
	run   func(a *app, ctx context.Context, fs *flag.FlagSet, args []string) error
}

var commandOrder = []string{
	"login", "logout", "whoami",
	"classes", "class", "class-create", "class-update", "class-delete",
	"enroll", "unenroll", "enrollments",
	"students", "instructors",
	"profile-update", "password", "avatar",
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":          {"Sign in and store the tokens", nil, (*app).login},
		"logout":         {"Forget the stored tokens", nil, (*app).logout},
		"whoami":         {"Show the signed-in profile and roles", client.RequireAuth, (*app).whoami},
		"classes":        {"List classes", client.RequireAuth, (*app).classes},
		"class":          {"Show one class", client.RequireAuth, (*app).class},
		"class-create":   {"Create a class (admin/instructor)", client.RequireAdminOrInstructor, (*app).classCreate},
		"class-update":   {"Update a class (admin/instructor)", client.RequireAdminOrInstructor, (*app).classUpdate},
		"class-delete":   {"Delete a class (admin/instructor)", client.RequireAdminOrInstructor, (*app).classDelete},
		"enroll":         {"Enroll yourself, or a student (admin/instructor), in a class", client.RequireAuth, (*app).enroll},
		"unenroll":       {"Leave a class, or remove a student (admin/instructor)", client.RequireAuth, (*app).unenroll},
		"enrollments":    {"List enrollments", client.RequireAuth, (*app).enrollments},
		"students":       {"Search students (admin/instructor)", client.RequireAdminOrInstructor, (*app).students},
		"instructors":    {"Search instructors (admin/instructor)", client.RequireAdminOrInstructor, (*app).instructors},
		"profile-update": {"Change name or email", client.RequireAuth, (*app).profileUpdate},
		"password":       {"Change your password", client.RequireAuth, (*app).password},
		"avatar":         {"Upload a profile picture", client.RequireAuth, (*app).avatar},
	}
}

func (a *app) dispatch(ctx context.Context, args []string) int {
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.out, "unknown command %q\n", args[0])
		return 2
	}

	if cmd.guard != nil {
		a.sess.Bootstrap(ctx)
		switch d := a.sess.Check(ctx, cmd.guard); d {
		case client.Allow:
		case client.RedirectLogin:
			// An expired session has already been reported by the terminal.
			if a.term.CurrentView() != d.Target() {
				fmt.Fprintln(a.out, "You are not signed in. Run `classctl login` first.")
			}
			return 3
		case client.RedirectHome:
			fmt.Fprintf(a.out, "%s requires an admin or instructor account.\n", args[0])
			return 4
		default:
			fmt.Fprintf(a.out, "session is not ready (%s)\n", d)
			return 1
		}
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(a.out)
	if err := cmd.run(a, ctx, fs, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(a.out, "error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

func (a *app) login(ctx context.Context, fs *flag.FlagSet, args []string) error {
	user := fs.String("u", "", "Username or email")
	pass := fs.String("p", "", "Password (read from stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("-u is required")
	}
	if *pass == "" {
		fmt.Fprint(a.out, "Password: ")
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*pass = strings.TrimRight(line, "\r\n")
	}

	if err := a.sess.Login(ctx, *user, *pass); err != nil {
		return err
	}
	p := a.sess.Profile()
	fmt.Fprintf(a.out, "Signed in as %s%s\n", p.Username, roleSuffix(a.sess.Roles()))
	return nil
}

func (a *app) logout(_ context.Context, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.sess.Logout()
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *app) whoami(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	// Roles may have changed on the server since the session was restored.
	p, err := a.sess.RefreshProfile(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		return client.ErrNotAuthenticated
	}
	fmt.Fprintf(a.out, "%s%s\n", p.Username, roleSuffix(a.sess.Roles()))
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		fmt.Fprintf(a.out, "Name:   %s\n", name)
	}
	if p.Email != "" {
		fmt.Fprintf(a.out, "Email:  %s\n", p.Email)
	}
	if p.AvatarURL != nil {
		fmt.Fprintf(a.out, "Avatar: %s\n", *p.AvatarURL)
	}
	return nil
}

func roleSuffix(r client.Roles) string {
	switch {
	case r.IsAdmin:
		return " (admin)"
	case r.IsInstructor:
		return " (instructor)"
	}
	return ""
}

func (a *app) classes(ctx context.Context, fs *flag.FlagSet, args []string) error {
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	items, err := a.client.Classes(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return a.printJSON(items)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tTITLE\tINSTRUCTOR\tPARTICIPANTS\tENROLLED")
	for _, c := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			c.ID, c.StartDatetime.Local().Format("2006-01-02 15:04"), c.Title,
			deref(c.InstructorUsername, "-"), c.ParticipantsCount, yesNo(c.Enrolled))
	}
	return tw.Flush()
}

func (a *app) class(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "Class ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return errors.New("-id is required")
	}
	item, err := a.client.Class(ctx, *id)
	if err != nil {
		return err
	}
	return a.printJSON(item)
}

type classFlags struct {
	title, desc, start *string
	instructor         *int64
}

func bindClassFlags(fs *flag.FlagSet) classFlags {
	return classFlags{
		title:      fs.String("title", "", "Title"),
		desc:       fs.String("desc", "", "Description"),
		start:      fs.String("start", "", "Start time, RFC 3339 (2026-03-01T09:00:00-03:00)"),
		instructor: fs.Int64("instructor", 0, "Instructor user ID"),
	}
}

// apply copies the flags that were set on the command line onto in.
func (f classFlags) apply(fs *flag.FlagSet, in *v1.ClassInput) error {
	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "title":
			in.Title = *f.title
		case "desc":
			in.Description = *f.desc
		case "start":
			var t time.Time
			if t, err = time.Parse(time.RFC3339, *f.start); err == nil {
				in.StartDatetime = t
			}
		case "instructor":
			if *f.instructor == 0 {
				in.Instructor = nil
			} else {
				id := *f.instructor
				in.Instructor = &id
			}
		}
	})
	return err
}

func (a *app) classCreate(ctx context.Context, fs *flag.FlagSet, args []string) error {
	f := bindClassFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	var in v1.ClassInput
	if err := f.apply(fs, &in); err != nil {
		return err
	}
	item, err := a.client.CreateClass(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created class %d (%s)\n", item.ID, item.Title)
	return nil
}

func (a *app) classUpdate(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "Class ID")
	f := bindClassFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return errors.New("-id is required")
	}
	current, err := a.client.Class(ctx, *id)
	if err != nil {
		return err
	}
	in := v1.ClassInput{
		Title:         current.Title,
		Description:   current.Description,
		StartDatetime: current.StartDatetime,
		Instructor:    current.Instructor,
	}
	if err := f.apply(fs, &in); err != nil {
		return err
	}
	item, err := a.client.UpdateClass(ctx, *id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated class %d (%s)\n", item.ID, item.Title)
	return nil
}

func (a *app) classDelete(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "Class ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return errors.New("-id is required")
	}
	if err := a.client.DeleteClass(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted class %d\n", *id)
	return nil
}

func (a *app) enroll(ctx context.Context, fs *flag.FlagSet, args []string) error {
	classID := fs.Int64("class", 0, "Class ID")
	student := fs.Int64("student", 0, "Student user ID (admin/instructor only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *classID == 0 {
		return errors.New("-class is required")
	}
	if *student != 0 && !a.sess.Roles().IsAdminOrInstructor {
		return errors.New("-student requires an admin or instructor account")
	}
	if err := a.client.Enroll(ctx, *classID, *student); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Enrolled in class %d\n", *classID)
	return nil
}

func (a *app) unenroll(ctx context.Context, fs *flag.FlagSet, args []string) error {
	classID := fs.Int64("class", 0, "Class ID")
	student := fs.Int64("student", 0, "Student user ID (admin/instructor only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *classID == 0 {
		return errors.New("-class is required")
	}
	var err error
	if *student != 0 {
		err = a.client.UnenrollStudent(ctx, *classID, *student)
	} else {
		err = a.client.Unenroll(ctx, *classID)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed enrollment in class %d\n", *classID)
	return nil
}

func (a *app) enrollments(ctx context.Context, fs *flag.FlagSet, args []string) error {
	classID := fs.Int64("class", 0, "Only this class")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var (
		list []v1.Enrollment
		err  error
	)
	if *classID != 0 {
		list, err = a.client.EnrollmentsByClass(ctx, *classID)
	} else {
		list, err = a.client.Enrollments(ctx)
	}
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLASS\tTITLE\tSTUDENT\tSINCE")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n",
			e.ID, e.ClassRef, deref(e.ClassTitle, "-"), e.Student, e.CreatedAt.Local().Format("2006-01-02"))
	}
	return tw.Flush()
}

func (a *app) students(ctx context.Context, fs *flag.FlagSet, args []string) error {
	return a.directory(ctx, fs, args, a.client.SearchStudents)
}

func (a *app) instructors(ctx context.Context, fs *flag.FlagSet, args []string) error {
	return a.directory(ctx, fs, args, a.client.SearchInstructors)
}

func (a *app) directory(ctx context.Context, fs *flag.FlagSet, args []string, search func(context.Context, string) ([]v1.UserLite, error)) error {
	q := fs.String("q", "", "Search text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	users, err := search(ctx, *q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tNAME\tEMAIL")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Username, strings.TrimSpace(u.FirstName+" "+u.LastName), u.Email)
	}
	return tw.Flush()
}

func (a *app) profileUpdate(ctx context.Context, fs *flag.FlagSet, args []string) error {
	first := fs.String("first", "", "First name")
	last := fs.String("last", "", "Last name")
	email := fs.String("email", "", "Email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var in v1.UpdateMeRequest
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "first":
			in.FirstName = first
		case "last":
			in.LastName = last
		case "email":
			in.Email = email
		}
	})
	if in == (v1.UpdateMeRequest{}) {
		return errors.New("nothing to update: pass -first, -last or -email")
	}
	p, err := a.client.UpdateMe(ctx, in)
	if err != nil {
		return err
	}
	a.sess.SetProfile(p)
	fmt.Fprintln(a.out, "Profile updated.")
	return nil
}

func (a *app) password(ctx context.Context, fs *flag.FlagSet, args []string) error {
	old := fs.String("old", "", "Current password")
	next := fs.String("new", "", "New password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *old == "" || *next == "" {
		return errors.New("-old and -new are required")
	}
	if err := a.client.ChangePassword(ctx, *old, *next); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed.")
	return nil
}

func (a *app) avatar(ctx context.Context, fs *flag.FlagSet, args []string) error {
	path := fs.String("file", "", "Image file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("-file is required")
	}
	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	url, err := a.client.UploadAvatar(ctx, filepath.Base(*path), f)
	if err != nil {
		return err
	}
	a.sess.MergeProfile(v1.ProfilePatch{AvatarURL: &url})
	fmt.Fprintf(a.out, "Avatar uploaded: %s\n", url)
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
