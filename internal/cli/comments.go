package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorrc/avisos-backend/internal/client"
)

func newCommentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comments <announcement-id>",
		Short: "List the comments of an announcement",
		Long:  "List every comment of an announcement, newest first.",
		Args:  cobra.ExactArgs(1),
		RunE:  runComments,
	}
}

func runComments(cmd *cobra.Command, args []string) error {
	id, err := parseAnnouncementID(args[0])
	if err != nil {
		return err
	}

	comments, err := newAPIClient().ListForAnnouncement(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, comments)
	}

	fmt.Fprintf(out, "Comments for announcement #%d:\n\n", id)
	if len(comments) == 0 {
		fmt.Fprintln(out, "No comments yet.")
		return nil
	}
	for _, c := range comments {
		printComment(out, c)
	}
	return nil
}

func newSearchCmd() *cobra.Command {
	var opts client.ListOptions

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search comments across announcements",
		Long:  "Search comments by announcement, author and date range (YYYY-MM-DD, both ends inclusive).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := newAPIClient().ListComments(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(out, page)
			}
			if err := printCommentTable(out, page.Data); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nPage %d, %d of %d comments.\n",
				page.Pagination.Page, len(page.Data), page.Pagination.TotalCount)
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.AnnouncementID, "announcement", 0, "announcement ID")
	cmd.Flags().Int64Var(&opts.AuthorID, "author-id", 0, "author user ID")
	cmd.Flags().StringVar(&opts.Author, "author", "", "author name fragment")
	cmd.Flags().StringVar(&opts.From, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "last day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "comments per page")

	return cmd
}

func newPostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `post <announcement-id> "text"`,
		Short: "Comment on an announcement",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runPost,
	}
}

func runPost(cmd *cobra.Command, args []string) error {
	id, err := parseAnnouncementID(args[0])
	if err != nil {
		return err
	}

	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		return fmt.Errorf("comment text is required")
	}

	comment, err := newAPIClient().CreateComment(cmd.Context(), id, text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, comment)
	}
	printComment(out, *comment)
	return nil
}

func parseAnnouncementID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid announcement ID: %s", arg)
	}
	return id, nil
}
