package shell

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/lineupsolver/config"
	"github.com/domino14/lineupsolver/match"
	"github.com/domino14/lineupsolver/store"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"load -source sqlite",
			&shellcmd{"load", nil, CmdOptions{"source": {"sqlite"}}},
			nil},
		{"sim stop",
			&shellcmd{"sim", []string{"stop"}, CmdOptions{}},
			nil},
		{"sim 0 3 -iters 500 ",
			&shellcmd{"sim",
				[]string{"0", "3"},
				CmdOptions{"iters": {"500"}}},
			nil,
		},
		{"weight Alice fast -25",
			&shellcmd{"weight", []string{"Alice", "fast", "-25"}, CmdOptions{}},
			nil},
		{`live 0 0 -feed 1:white:a.yaml -feed "2:black:https://example.com/game?id=4"`,
			&shellcmd{"live", []string{"0", "0"},
				CmdOptions{"feed": {"1:white:a.yaml", "2:black:https://example.com/game?id=4"}}},
			nil},
		{"counter Eve,_,_,_ -objective",
			nil, errWrongOptionSyntax},
	}
	for _, t := range cases {
		cmd, err := extractFields(t.line)
		is.Equal(cmd, t.expCmd)
		is.Equal(err, t.expErr)
	}
}

func writeLeague(t *testing.T) string {
	t.Helper()
	l := &store.League{Format: "regular"}
	for ti, team := range []string{"Knights", "Rooks"} {
		lt := store.LeagueTeam{Name: team}
		for i := 0; i < 4; i++ {
			r := 1800 - 40*float64(i) - 25*float64(ti)
			lt.Players = append(lt.Players, store.LeaguePlayer{
				Name:   fmt.Sprintf("%c%d", team[0], i+1),
				Rating: &r,
			})
		}
		l.Teams = append(l.Teams, lt)
	}
	for _, a := range l.Teams[0].Players {
		for _, b := range l.Teams[1].Players {
			l.SetRecord(a.Name, b.Name, 1, 1)
		}
	}
	path := filepath.Join(t.TempDir(), "league.yaml")
	if err := l.Write(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func testController() (*ShellController, *bytes.Buffer) {
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigThreads, 2)
	cfg.Set(config.ConfigLivePollInterval, 10*time.Millisecond)
	var out bytes.Buffer
	return &ShellController{config: &cfg, out: &out, format: match.Regular}, &out
}

func run(t *testing.T, sc *ShellController, line string) string {
	t.Helper()
	resp, err := sc.standardModeSwitch(line, nil)
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	return resp.message
}

func TestSession(t *testing.T) {
	is := is.New(t)
	sc, _ := testController()
	defer sc.Cleanup()
	path := writeLeague(t)

	_, err := sc.standardModeSwitch("build", nil)
	is.Equal(err, errNoTeams)
	_, err = sc.standardModeSwitch("teams Knights Rooks", nil)
	is.Equal(err, errNoLeague)

	is.True(strings.Contains(run(t, sc, "load "+path), "Loaded 2 teams: Knights, Rooks"))
	is.True(strings.Contains(run(t, sc, "teams knights rooks"), "K1"))
	is.True(strings.Contains(run(t, sc, "format"), "ace match"))
	is.True(strings.Contains(run(t, sc, "build"), "Built 24 x 24"))

	best := run(t, sc, "best -n 3")
	is.True(strings.Contains(best, "best-average lineups for Knights (team1)"))
	is.Equal(strings.Count(best, "\n"), 5)
	is.True(strings.Contains(run(t, sc, "maximin -side team2 -n 1"), "maximin lineups for Rooks (team2)"))
	is.True(strings.Contains(run(t, sc, "counter R1,_,_,_"), "(6 possible lineups)"))
	is.True(strings.Contains(run(t, sc, "counter _,_,_,_ -own K2,_,_,_ -objective maximin"), "K2 / "))

	is.True(strings.Contains(run(t, sc, "show 0 0"), "total win"))
	is.True(strings.Contains(run(t, sc, "show -team1 K1,K2,K3,K4 -team2 R4,R3,R2,R1"), "R4 / R3 / R2 / R1"))
	_, err = sc.standardModeSwitch("show -team1 K1,_,K3,K4 -team2 R4,R3,R2,R1", nil)
	is.True(err != nil)
	is.True(strings.Contains(run(t, sc, "sort win min -n 2"), "K"))
	is.True(strings.Contains(run(t, sc, "sort decisive mean -cols true -n 2"), "R"))

	run(t, sc, "weight K1 fast 50")
	_, err = sc.standardModeSwitch("best", nil)
	is.Equal(err, errNoMatrix)
	is.True(strings.Contains(run(t, sc, "build -pin1 K1,_,_,_"), "Built 6 x 24"))

	_, err = sc.standardModeSwitch("exit", nil)
	is.Equal(err, errQuit)
	_, err = sc.standardModeSwitch("castle", nil)
	is.True(err != nil)
}

func TestSimCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := testController()
	defer sc.Cleanup()
	run(t, sc, "load "+writeLeague(t))
	run(t, sc, "teams Knights Rooks")
	run(t, sc, "build")

	_, err := sc.standardModeSwitch("sim show", nil)
	is.Equal(err, errNotSimmed)
	run(t, sc, "sim 0 0 0 1 -iters 2000 -threads 2")
	deadline := time.Now().Add(10 * time.Second)
	for sc.simmer.IsSimming() || sc.simmer.Iterations() < 2000 {
		if time.Now().After(deadline) {
			t.Fatal("sim did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	is.True(strings.Contains(run(t, sc, "sim show"), "Iterations: 2000"))
	is.True(strings.Contains(run(t, sc, "sim scores 1"), "% of time"))
	is.True(len(run(t, sc, "sim hist 0")) > 0)
	_, err = sc.standardModeSwitch("sim stop", nil)
	is.True(err != nil)
	_, err = sc.standardModeSwitch("sim 0 0 -stop 90", nil)
	is.True(err != nil)
}

func TestLiveCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := testController()
	defer sc.Cleanup()
	run(t, sc, "load "+writeLeague(t))
	run(t, sc, "teams Knights Rooks")
	run(t, sc, "build")

	feed := filepath.Join(t.TempDir(), "board1.yaml")
	is.NoErr(os.WriteFile(feed, []byte("leader-win-pct: 90\nto-move: white\nmove-count: 60\n"), 0o644))

	_, err := sc.standardModeSwitch("live 0 0 -feed 1:green:"+feed, nil)
	is.True(err != nil)
	_, err = sc.standardModeSwitch("live 0 0 -feed 9:white:"+feed, nil)
	is.True(err != nil)

	is.True(strings.Contains(run(t, sc, "live 0 0 -feed 1:white:"+feed), "Tracking 1 boards"))
	_, err = sc.standardModeSwitch("build", nil)
	is.True(err != nil)
	deadline := time.Now().Add(5 * time.Second)
	for sc.liveLatest.Load() == nil {
		if time.Now().After(deadline) {
			t.Fatal("no live update")
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap := sc.liveLatest.Load()
	is.True(snap.Boards[0] > sc.matrix.Cell(0, 0).BoardProbs[0])
	is.True(strings.Contains(run(t, sc, "live show"), "board 1: live"))
	run(t, sc, "live stop")
	is.True(sc.tracker == nil)
	_, err = sc.standardModeSwitch("live show", nil)
	is.True(err != nil)
}

func TestRecordAndSave(t *testing.T) {
	is := is.New(t)
	sc, _ := testController()
	path := writeLeague(t)
	run(t, sc, "load "+path)
	is.Equal(run(t, sc, "record K1 R2"), "K1 1 - 1 R2")
	run(t, sc, "record R2 K1 0 5")
	run(t, sc, "save")

	again, _ := testController()
	run(t, again, "load "+path)
	is.Equal(run(t, again, "record K1 R2"), "K1 5 - 0 R2")
	_, err := again.standardModeSwitch("record K1 R2 -1 0", nil)
	is.True(err != nil)
	_, err = again.standardModeSwitch("game K1 R2 K1", nil)
	is.True(err != nil)
}

func TestRatingsFromFile(t *testing.T) {
	is := is.New(t)
	sc, _ := testController()
	run(t, sc, "load "+writeLeague(t))
	run(t, sc, "teams Knights Rooks")
	page := filepath.Join(t.TempDir(), "ratings.html")
	is.NoErr(os.WriteFile(page, []byte(`<table>
<tr><th>Name</th><th>Rating</th></tr>
<tr><td>K1</td><td>2100</td></tr>
<tr><td>Nobody</td><td>1500</td></tr>
</table>`), 0o644))
	is.True(strings.Contains(run(t, sc, "ratings -file "+page), "updated 1 league players: K1"))
	k1, err := sc.team1.Lookup("K1")
	is.NoErr(err)
	is.Equal(k1.Rating, 2100.0)
}

func TestSetAndHelp(t *testing.T) {
	is := is.New(t)
	sc, out := testController()
	is.Equal(run(t, sc, "set threads 3"), "threads set to 3")
	is.Equal(sc.config.Threads(), 3)
	run(t, sc, "set tiebreak.position-penalties 1,0.9")
	p, err := sc.config.TiebreakPenalties()
	is.NoErr(err)
	is.Equal(p.Position, []float64{1, 0.9})
	is.True(strings.Contains(run(t, sc, "set"), "live.max-weight"))

	is.True(strings.Contains(run(t, sc, "help"), "Usage:"))
	is.True(strings.Contains(run(t, sc, "help counter"), "counter <opponent pattern>"))
	is.True(strings.Contains(run(t, sc, "help nope"), "There is no help text"))

	sc.Execute(nil, "best")
	is.True(strings.Contains(out.String(), "Error: "+errNoMatrix.Error()))
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	sc, _ := testController()
	c := NewShellCompleter(sc)
	m, n := c.Do([]rune("coun"), 4)
	is.Equal(n, 4)
	is.Equal(m, [][]rune{[]rune("ter")})
	line := "best -side t"
	m, n = c.Do([]rune(line), len(line))
	is.Equal(n, 1)
	is.Equal(len(m), 2)
}
