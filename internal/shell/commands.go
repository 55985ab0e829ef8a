package shell

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/internal/services"
	"github.com/clikanban/kanban/types"
	"github.com/spf13/cobra"
)

// commands builds the verb tree for one input line.
func (s *Shell) commands() *cobra.Command {
	root := &cobra.Command{
		Use:           "kanban",
		Short:         "CLI-Kanban: command-line Kanban task management",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(s.out)
	root.SetErr(s.out)
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		s.signupCmd(),
		s.loginCmd(),
		s.signoutCmd(),
		s.whoamiCmd(),
		s.createBoardCmd(),
		s.listBoardsCmd(),
		s.viewBoardCmd(),
		s.deleteBoardCmd(),
		s.addColumnCmd(),
		s.exportBoardCmd(),
		s.listExportsCmd(),
		s.showExportCmd(),
		s.addTaskCmd(),
		s.editTaskCmd(),
		s.moveTaskCmd(),
		s.deleteTaskCmd(),
		s.searchCmd(),
	)
	return root
}

func (s *Shell) signupCmd() *cobra.Command {
	var (
		req         services.SignupRequest
		licenceFile string
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new user with a licence key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if licenceFile != "" {
				if req.LicenceKey != "" {
					return errors.New("use either --licence or --licence-file, not both")
				}
				key, err := services.ReadKeyFile(licenceFile)
				if err != nil {
					return err
				}
				req.LicenceKey = key
			}
			_, role, err := s.app.Auth.Signup(cmd.Context(), req)
			if err != nil {
				return err
			}
			s.success("User '%s' created as '%s'", strings.TrimSpace(req.Username), role)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Username, "username", "", "Username")
	f.StringVar(&req.Password, "password", "", "Password")
	f.StringVar(&req.Email, "email", "", "Email address")
	f.StringVar(&req.Role, "role", string(types.RoleMembers), "User role (Members, Hashira, Boss)")
	f.StringVar(&req.LicenceKey, "licence", "", "Licence key in AAAA-BBBB-CCCC-DDDD format")
	f.StringVar(&req.LicenceKey, "license", "", "Alias of --licence")
	f.StringVar(&licenceFile, "licence-file", "", "Read the licence key from a file")
	_ = f.MarkHidden("license")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (s *Shell) loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to the system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := s.app.Auth.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			sess := types.SessionFor(user)
			s.sess = &sess
			s.success("Logged in as '%s' (%s)", user.Username, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (s *Shell) signoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out from the system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			s.sess = nil
			s.success("Signed out '%s'", sess.Username)
			return nil
		},
	}
}

func (s *Shell) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s (%s)\n", sess.Username, sess.Role)
			return nil
		},
	}
}

func (s *Shell) createBoardCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-board",
		Short: "Create a new board (Boss only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			board, err := s.app.Boards.CreateBoard(cmd.Context(), sess, name)
			if err != nil {
				return err
			}
			s.success("Board '%s' created", board.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Board name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (s *Shell) listBoardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-boards",
		Short: "List the boards you can see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			boards, err := s.app.Boards.ListBoards(cmd.Context(), sess)
			if err != nil {
				return err
			}
			printBoards(s.out, boards)
			return nil
		},
	}
}

func (s *Shell) viewBoardCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "view-board",
		Short: "View the tasks of a board by column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			view, err := s.app.Boards.ViewBoard(cmd.Context(), sess, name)
			if err != nil {
				return err
			}
			printBoardView(s.out, view)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Board name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (s *Shell) deleteBoardCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "delete-board",
		Short: "Delete a board and its tasks (Boss only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			removed, err := s.app.Boards.DeleteBoard(cmd.Context(), sess, name)
			if err != nil {
				return err
			}
			s.success("Board '%s' deleted (%d tasks removed)", name, removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Board name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (s *Shell) addColumnCmd() *cobra.Command {
	var board, column string
	cmd := &cobra.Command{
		Use:   "add-column",
		Short: "Add a column to one of your boards (Boss only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			updated, err := s.app.Boards.AddColumn(cmd.Context(), sess, board, column)
			if err != nil {
				return err
			}
			s.success("Board '%s' columns: %s", updated.Name, strings.Join(updated.Columns, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&board, "board", "", "Board name")
	cmd.Flags().StringVar(&column, "name", "", "Column name")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (s *Shell) exportBoardCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "export-board",
		Short: "Archive a snapshot of a board (Boss only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			key, err := s.app.Boards.ExportBoard(cmd.Context(), sess, name)
			if err != nil {
				return err
			}
			s.success("Board '%s' exported to %s", name, key)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Board name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (s *Shell) listExportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-exports",
		Short: "List archived snapshots of your boards (Boss only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			entries, err := s.app.Boards.ListExports(cmd.Context(), sess)
			if err != nil {
				return err
			}
			printExports(s.out, entries)
			return nil
		},
	}
}

func (s *Shell) showExportCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "show-export",
		Short: "Show an archived board snapshot (Boss only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			snap, err := s.app.Boards.LoadExport(cmd.Context(), sess, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Snapshot taken %s (%s)\n", snap.ExportedAt.Format(time.RFC3339), snap.Reason)
			printBoardView(s.out, snap.View())
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Snapshot key from list-exports")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func (s *Shell) addTaskCmd() *cobra.Command {
	var (
		boardName string
		in        services.NewTask
		desc, due string
	)
	cmd := &cobra.Command{
		Use:   "add-task",
		Short: "Add a task (Hashira or Boss)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			board, err := s.app.Boards.ResolveBoard(cmd.Context(), sess, boardName)
			if err != nil {
				return err
			}
			in.BoardID = board.ID
			if cmd.Flags().Changed("desc") {
				in.Description = &desc
			}
			if cmd.Flags().Changed("due") {
				in.DueDate = &due
			}
			task, err := s.app.Tasks.CreateTask(cmd.Context(), sess, in)
			if err != nil {
				return err
			}
			s.success("Task '%s' created on board '%s' (id: %s)", task.Title, board.Name, shortID(task.ID))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&boardName, "board", "", "Board name")
	f.StringVar(&in.Title, "title", "", "Task title")
	f.StringVar(&in.Column, "column", string(types.ColumnTodo), "Column (TODO, DOING, DONE)")
	f.StringVar(&desc, "desc", "", "Task description")
	f.StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	f.StringVar(&in.Priority, "priority", string(types.PriorityMedium), "Priority (high, medium, low)")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (s *Shell) editTaskCmd() *cobra.Command {
	var (
		boardName, title string
		newTitle, desc   string
		due, priority    string
	)
	cmd := &cobra.Command{
		Use:   "edit-task",
		Short: "Edit a task (Hashira or Boss)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var update types.TaskUpdate
			f := cmd.Flags()
			if f.Changed("new-title") {
				update.Title = &newTitle
			}
			if f.Changed("desc") {
				update.Description = &desc
			}
			if f.Changed("due") {
				update.DueDate = &due
			}
			if f.Changed("priority") {
				p := types.Priority(priority)
				update.Priority = &p
			}
			if update.Empty() {
				return errors.New("no updates provided")
			}

			sess, task, err := s.findTask(cmd, boardName, title)
			if err != nil {
				return err
			}
			if _, err := s.app.Tasks.EditTask(cmd.Context(), sess, task.ID, update); err != nil {
				return err
			}
			s.success("Task '%s' updated", title)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&boardName, "board", "", "Board name")
	f.StringVar(&title, "title", "", "Title of the task to edit")
	f.StringVar(&newTitle, "new-title", "", "New title")
	f.StringVar(&desc, "desc", "", "New description")
	f.StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	f.StringVar(&priority, "priority", "", "New priority (high, medium, low)")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (s *Shell) moveTaskCmd() *cobra.Command {
	var boardName, title, to string
	cmd := &cobra.Command{
		Use:   "move-task",
		Short: "Move a task to another column (Hashira or Boss)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, task, err := s.findTask(cmd, boardName, title)
			if err != nil {
				return err
			}
			moved, err := s.app.Tasks.MoveTask(cmd.Context(), sess, task.ID, to)
			if err != nil {
				return err
			}
			s.success("Task '%s' moved to %s", title, moved.Column)
			return nil
		},
	}
	cmd.Flags().StringVar(&boardName, "board", "", "Board name")
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&to, "to", "", "Target column (TODO, DOING, DONE)")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (s *Shell) deleteTaskCmd() *cobra.Command {
	var boardName, title string
	cmd := &cobra.Command{
		Use:   "delete-task",
		Short: "Delete a task (Hashira or Boss)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, task, err := s.findTask(cmd, boardName, title)
			if err != nil {
				return err
			}
			if err := s.app.Tasks.DeleteTask(cmd.Context(), sess, task.ID); err != nil {
				return err
			}
			s.success("Task '%s' deleted", title)
			return nil
		},
	}
	cmd.Flags().StringVar(&boardName, "board", "", "Board name")
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (s *Shell) searchCmd() *cobra.Command {
	var boardName, keyword string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the tasks of a board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.requireSession()
			if err != nil {
				return err
			}
			board, err := s.app.Boards.ResolveBoard(cmd.Context(), sess, boardName)
			if err != nil {
				return err
			}
			tasks, err := s.app.Tasks.SearchTasks(cmd.Context(), board.ID, keyword)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(s.out, "No matching tasks found")
				return nil
			}
			printTasks(s.out, tasks)
			return nil
		},
	}
	cmd.Flags().StringVar(&boardName, "board", "", "Board name")
	cmd.Flags().StringVar(&keyword, "keyword", "", "Search keyword")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("keyword")
	return cmd
}

// findTask resolves the first task with title on the named board.
func (s *Shell) findTask(cmd *cobra.Command, boardName, title string) (types.Session, types.Task, error) {
	sess, err := s.requireSession()
	if err != nil {
		return types.Session{}, types.Task{}, err
	}
	board, err := s.app.Boards.ResolveBoard(cmd.Context(), sess, boardName)
	if err != nil {
		return types.Session{}, types.Task{}, err
	}
	task, err := s.app.Tasks.FindByBoardAndTitle(cmd.Context(), board.ID, title)
	if apperr.Is(err, apperr.KindNotFound) {
		return types.Session{}, types.Task{}, apperr.NotFound("task '%s' not found in board '%s'", title, board.Name)
	}
	if err != nil {
		return types.Session{}, types.Task{}, err
	}
	return sess, task, nil
}
