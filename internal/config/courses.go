package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Course is one entry in a batch course list.
type Course struct {
	// ID is the course identifier used in platform URLs.
	ID string `yaml:"id"`

	// Name is an optional display name; the syllabus title wins when both
	// are present.
	Name string `yaml:"name"`

	// Per-course filter overrides. Empty values inherit the global
	// settings.
	SectionFilter  string   `yaml:"section_filter"`
	ItemFilter     string   `yaml:"item_filter"`
	ResourceFilter string   `yaml:"resource_filter"`
	FileFormats    []string `yaml:"file_formats"`
}

// CourseList is the YAML document describing a batch run.
type CourseList struct {
	Courses []Course `yaml:"courses"`
}

// LoadCourseList reads a batch run description from a YAML file.
func LoadCourseList(path string) (*CourseList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list CourseList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse course list %s: %w", path, err)
	}
	if len(list.Courses) == 0 {
		return nil, fmt.Errorf("course list %s names no courses", path)
	}
	for i, course := range list.Courses {
		if course.ID == "" {
			return nil, fmt.Errorf("course list %s: entry %d has no id", path, i+1)
		}
	}
	return &list, nil
}

// Merge applies a course's overrides on top of the base settings and
// returns the effective settings for that course.
func (c Course) Merge(base *Settings) *Settings {
	merged := *base
	if c.SectionFilter != "" {
		merged.SectionFilter = c.SectionFilter
	}
	if c.ItemFilter != "" {
		merged.ItemFilter = c.ItemFilter
	}
	if c.ResourceFilter != "" {
		merged.ResourceFilter = c.ResourceFilter
	}
	if len(c.FileFormats) > 0 {
		merged.FileFormats = c.FileFormats
	}
	return &merged
}
