package main

import (
	"fmt"

	"github.com/gdamore/tcell"

	"github.com/pridesync/radio/rds"
)

func Clear(scr tcell.Screen, x, y, h, w int, c rune, style tcell.Style) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			scr.SetContent(i, j, c, nil, style)
		}
	}
}

func DrawLines(scr tcell.Screen, x, y int, style tcell.Style, lines []string) {
	for j, line := range lines {
		for i, c := range line {
			scr.SetContent(x+i, y+j, c, nil, style)
		}
	}
}

type ui struct {
	scr tcell.Screen

	freqStyle tcell.Style
	infoStyle tcell.Style
	recStyle  tcell.Style
}

func newUI(scr tcell.Screen) *ui {
	return &ui{
		scr:       scr,
		freqStyle: tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true),
		infoStyle: tcell.StyleDefault,
		recStyle:  tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	}
}

// status is everything the screen shows per update.
type status struct {
	Frequency float64
	Volume    int
	Muted     bool
	RSSI      int
	Stereo    bool
	Station   rds.StationInfo
	Recording bool
	Filename  string
}

func (u *ui) render(st status) {
	w, _ := u.scr.Size()

	stereo := "Mono  "
	if st.Stereo {
		stereo = "Stereo"
	}
	mute := ""
	if st.Muted {
		mute = "  MUTED"
	}
	header := fmt.Sprintf("FM %5.1f MHz   vol %2d%s   RSSI %2d  %s",
		st.Frequency, st.Volume, mute, st.RSSI, stereo)

	name := st.Station.StationName
	if name == "" {
		name = "--------"
	}
	flags := ""
	if st.Station.TrafficProgram {
		flags += " [TP]"
	}
	if st.Station.TrafficAnnouncement {
		flags += " [TA]"
	}
	station := fmt.Sprintf("%s  (%s)%s  PI %s",
		name, st.Station.ProgramTypeName(), flags, st.Station.PICode())

	clock := ""
	if st.Station.Clock != nil {
		clock = "CT " + st.Station.Clock.String()
	}

	rec := ""
	if st.Recording {
		rec = "REC " + st.Filename
	}

	Clear(u.scr, 0, 1, 9, w, ' ', u.infoStyle)
	DrawLines(u.scr, 2, 1, u.freqStyle, []string{header})
	DrawLines(u.scr, 2, 3, u.infoStyle, []string{station})
	DrawLines(u.scr, 2, 5, u.infoStyle, []string{st.Station.RadioText})
	DrawLines(u.scr, 2, 7, u.infoStyle, []string{clock})
	if rec != "" {
		DrawLines(u.scr, 2, 9, u.recStyle, []string{rec})
	}
	DrawLines(u.scr, 2, 11, u.infoStyle, []string{
		"up/down tune   pgup/pgdn seek   +/- volume   m mute   r record   q quit",
	})
	u.scr.Show()
}
