package submission

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wcharczuk/go-chart/v2"

	"flagforge/server/contest"
)

// SolveEvent is one accepted solve in a timeline replay.
type SolveEvent struct {
	Time   time.Time
	Points int
}

// TimelinePoint is one step of a cumulative score timeline. A nil Time
// marks the zero-score starting point.
type TimelinePoint struct {
	Time  *time.Time `json:"time"`
	Score int        `json:"score"`
}

// BuildTimeline replays solve events into a cumulative timeline. Events
// must already be ordered by time.
func BuildTimeline(events []SolveEvent) []TimelinePoint {
	timeline := make([]TimelinePoint, 0, len(events)+1)
	timeline = append(timeline, TimelinePoint{Time: nil, Score: 0})
	total := 0
	for _, ev := range events {
		total += ev.Points
		t := ev.Time
		timeline = append(timeline, TimelinePoint{Time: &t, Score: total})
	}
	return timeline
}

type teamTimeline struct {
	TeamID   int64           `json:"teamId"`
	TeamName string          `json:"teamName"`
	Score    int             `json:"score"`
	Timeline []TimelinePoint `json:"timeline"`
}

// topTeamTimelines loads the top ten teams by ledger-computed score and
// replays each team's solve history, truncated at the freeze bound.
func topTeamTimelines(db *sql.DB, bound time.Time) ([]teamTimeline, error) {
	rows, err := db.Query(`
		SELECT t.id, t.name,
			COALESCE((SELECT SUM(ch.points) FROM submissions s
				JOIN challenges ch ON s.challenge_id = ch.id
				JOIN users m ON s.user_id = m.id
				WHERE s.team_id = t.id AND s.is_correct AND NOT m.is_banned
				  AND s.submitted_at < $1), 0) AS score
		FROM teams t
		WHERE NOT t.is_hidden AND NOT t.is_banned
		ORDER BY score DESC
		LIMIT 10`, bound)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]teamTimeline, 0, 10)
	for rows.Next() {
		var tt teamTimeline
		if err := rows.Scan(&tt.TeamID, &tt.TeamName, &tt.Score); err != nil {
			return nil, err
		}
		teams = append(teams, tt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range teams {
		eventRows, err := db.Query(`
			SELECT ch.points, s.submitted_at
			FROM submissions s
			JOIN challenges ch ON s.challenge_id = ch.id
			JOIN users m ON s.user_id = m.id
			WHERE s.team_id = $1 AND s.is_correct AND NOT m.is_banned
			  AND s.submitted_at < $2
			ORDER BY s.submitted_at ASC`, teams[i].TeamID, bound)
		if err != nil {
			return nil, err
		}
		var events []SolveEvent
		for eventRows.Next() {
			var ev SolveEvent
			if err := eventRows.Scan(&ev.Points, &ev.Time); err != nil {
				eventRows.Close()
				return nil, err
			}
			events = append(events, ev)
		}
		eventRows.Close()
		if err := eventRows.Err(); err != nil {
			return nil, err
		}
		teams[i].Timeline = BuildTimeline(events)
	}
	return teams, nil
}

func graphBound(c *gin.Context, db *sql.DB) time.Time {
	viewer := contest.ViewerFrom(c)
	now := time.Now()
	freeze, hasFreeze := contest.LoadFreeze(db)
	if hasFreeze && contest.IsFrozen(now, freeze) && !viewer.IsAdmin {
		return freeze
	}
	return now.Add(time.Hour)
}

// HandleGetScoreGraph returns the top-10 team progress timelines as JSON.
func HandleGetScoreGraph(c *gin.Context, db *sql.DB) {
	viewer := contest.ViewerFrom(c)
	if !checkScoreboardAccess(c, db, viewer) {
		return
	}

	teams, err := topTeamTimelines(db, graphBound(c, db))
	if err != nil {
		log.Printf("score graph query error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

// HandleGetScoreGraphPNG renders the same timelines as a PNG line chart.
func HandleGetScoreGraphPNG(c *gin.Context, db *sql.DB) {
	viewer := contest.ViewerFrom(c)
	if !checkScoreboardAccess(c, db, viewer) {
		return
	}

	teams, err := topTeamTimelines(db, graphBound(c, db))
	if err != nil {
		log.Printf("score graph query error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	series := make([]chart.Series, 0, len(teams))
	for _, team := range teams {
		ts := chart.TimeSeries{Name: team.TeamName}
		for _, point := range team.Timeline {
			if point.Time == nil {
				continue
			}
			ts.XValues = append(ts.XValues, *point.Time)
			ts.YValues = append(ts.YValues, float64(point.Score))
		}
		// A single point cannot form a line.
		if len(ts.XValues) < 2 {
			continue
		}
		series = append(series, ts)
	}

	if len(series) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "not enough data to draw a graph"})
		return
	}

	graph := chart.Chart{
		Width:  900,
		Height: 450,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("15:04"),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	c.Header("Content-Type", "image/png")
	if err := graph.Render(chart.PNG, c.Writer); err != nil {
		log.Printf("render score graph error: %v", err)
	}
}
