// Package conf reads the line-oriented descriptor files shared by the
// feature, pattern, rule, tagset and lexicon loaders.
package conf

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const (
	COMMENT_PREFIX  = "#"
	FIELD_SEPARATOR = "\t"
)

// A Line is a non-comment, non-blank line with its 1-based position in the source
type Line struct {
	Num  int
	Text string
}

// Fields splits the line on tabs
func (l Line) Fields() []string {
	return strings.Split(l.Text, FIELD_SEPARATOR)
}

type Conf struct {
	Lines []Line
}

func (c *Conf) Values() []string {
	retval := make([]string, len(c.Lines))
	for i, line := range c.Lines {
		retval[i] = line.Text
	}
	return retval
}

func Read(reader io.Reader) (*Conf, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	retval := &Conf{}
	num := 0
	for scanner.Scan() {
		num++
		text := strings.TrimRight(scanner.Text(), "\r")
		if len(strings.TrimSpace(text)) == 0 || strings.HasPrefix(text, COMMENT_PREFIX) {
			continue
		}
		retval.Lines = append(retval.Lines, Line{num, text})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return retval, nil
}

func ReadFile(filename string) (*Conf, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file)
}
