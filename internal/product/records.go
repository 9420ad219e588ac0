package product

import (
	"fmt"
	"strings"

	ociImageSpecV1 "github.com/opencontainers/image-spec/specs-go/v1"
	"gopkg.in/yaml.v3"
)

// LabelProductNumber is the image label carrying the product number.
const LabelProductNumber = "com.ericsson.product-number"

// LabelProductVersion is the image label carrying the product revision.
const LabelProductVersion = ociImageSpecV1.AnnotationVersion

// PlaceholderProductNumber is reported for packages whose product number is
// not known at packaging time.
const PlaceholderProductNumber = "TBC"

// Field is one named value of a record, in report order.
type Field struct {
	Name  string
	Value string
}

// Record is implemented by Package and Image.
type Record interface {
	fmt.Stringer
	Fields() []Field
	LogicalPath() string
}

// Valid reports whether every field of the record is set.
func Valid(r Record) bool {
	for _, f := range r.Fields() {
		if f.Value == "" {
			return false
		}
	}
	return true
}

// Describe renders the record as "name: value" lines.
func Describe(r Record) string {
	fields := r.Fields()
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, f.Name+": "+f.Value)
	}
	return strings.Join(lines, "\n")
}

// FieldDiff is a field whose value differs between two records.
type FieldDiff struct {
	Name        string
	Left, Right string
}

func (d FieldDiff) String() string {
	return fmt.Sprintf("%s: %q != %q", d.Name, d.Left, d.Right)
}

// Diff compares two records field by field. Fields missing from one side
// compare against the empty string.
func Diff(left, right Record) []FieldDiff {
	rightValues := make(map[string]string)
	for _, f := range right.Fields() {
		rightValues[f.Name] = f.Value
	}
	var diffs []FieldDiff
	for _, f := range left.Fields() {
		if v := rightValues[f.Name]; v != f.Value {
			diffs = append(diffs, FieldDiff{Name: f.Name, Left: f.Value, Right: v})
		}
	}
	return diffs
}

// PackageKind selects the report fields of a package.
type PackageKind int

const (
	// KindChart packages report chart_name and chart_version.
	KindChart PackageKind = iota
	// KindHelmfile packages report helmfile_name and helmfile_version.
	KindHelmfile
)

// Package is a chart or helmfile listed in the report.
type Package struct {
	Kind PackageKind
	// Path is the logical path of the archive, including every parent archive.
	Path string

	ProductNumber  string
	ProductVersion string
	Package        string
	Name           string
	Version        string
	SHA256Sum      string
}

func (p Package) LogicalPath() string { return p.Path }

func (p Package) String() string {
	if p.Kind == KindHelmfile {
		return fmt.Sprintf("Helmfile %s version %s", p.Name, p.Version)
	}
	return fmt.Sprintf("Helm Chart %s version %s", p.Name, p.Version)
}

func (p Package) Fields() []Field {
	nameField, versionField := "chart_name", "chart_version"
	if p.Kind == KindHelmfile {
		nameField, versionField = "helmfile_name", "helmfile_version"
	}
	return []Field{
		{"product_number", p.ProductNumber},
		{"product_version", p.ProductVersion},
		{"package", p.Package},
		{nameField, p.Name},
		{versionField, p.Version},
		{"sha256sum", p.SHA256Sum},
	}
}

// Equal compares every reported field. The logical path is ignored.
func (p Package) Equal(o Package) bool {
	p.Path, o.Path = "", ""
	return p == o
}

type chartPackageYAML struct {
	ProductNumber  string `yaml:"product_number"`
	ProductVersion string `yaml:"product_version"`
	Package        string `yaml:"package"`
	ChartName      string `yaml:"chart_name"`
	ChartVersion   string `yaml:"chart_version"`
	SHA256Sum      string `yaml:"sha256sum"`
}

type helmfilePackageYAML struct {
	ProductNumber   string `yaml:"product_number"`
	ProductVersion  string `yaml:"product_version"`
	Package         string `yaml:"package"`
	HelmfileName    string `yaml:"helmfile_name"`
	HelmfileVersion string `yaml:"helmfile_version"`
	SHA256Sum       string `yaml:"sha256sum"`
}

func (p Package) MarshalYAML() (any, error) {
	if p.Kind == KindHelmfile {
		return helmfilePackageYAML{
			ProductNumber:   p.ProductNumber,
			ProductVersion:  p.ProductVersion,
			Package:         p.Package,
			HelmfileName:    p.Name,
			HelmfileVersion: p.Version,
			SHA256Sum:       p.SHA256Sum,
		}, nil
	}
	return chartPackageYAML{
		ProductNumber:  p.ProductNumber,
		ProductVersion: p.ProductVersion,
		Package:        p.Package,
		ChartName:      p.Name,
		ChartVersion:   p.Version,
		SHA256Sum:      p.SHA256Sum,
	}, nil
}

func (p *Package) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		chartPackageYAML `yaml:",inline"`
		HelmfileName     *string `yaml:"helmfile_name"`
		HelmfileVersion  string  `yaml:"helmfile_version"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*p = Package{
		ProductNumber:  raw.ProductNumber,
		ProductVersion: raw.ProductVersion,
		Package:        raw.Package,
		Name:           raw.ChartName,
		Version:        raw.ChartVersion,
		SHA256Sum:      raw.SHA256Sum,
	}
	if raw.HelmfileName != nil {
		p.Kind = KindHelmfile
		p.Name = *raw.HelmfileName
		p.Version = raw.HelmfileVersion
	}
	return nil
}

// Image is a container image listed in the report.
type Image struct {
	Path string `yaml:"-"`

	ProductNumber  string `yaml:"product_number"`
	ProductVersion string `yaml:"product_version"`
	Image          string `yaml:"image"`
	ImageName      string `yaml:"image_name"`
	ImageTag       string `yaml:"image_tag"`
	SHA256Sum      string `yaml:"sha256sum"`
}

func (i Image) LogicalPath() string { return i.Path }

func (i Image) String() string {
	return fmt.Sprintf("Image %s version %s", i.ImageName, i.ImageTag)
}

func (i Image) Fields() []Field {
	return []Field{
		{"product_number", i.ProductNumber},
		{"product_version", i.ProductVersion},
		{"image", i.Image},
		{"image_name", i.ImageName},
		{"image_tag", i.ImageTag},
		{"sha256sum", i.SHA256Sum},
	}
}

// Equal compares every reported field. The logical path is ignored.
func (i Image) Equal(o Image) bool {
	i.Path, o.Path = "", ""
	return i == o
}

// MetadataImage is one entry of the images section of a product metadata file.
type MetadataImage struct {
	Registry      string `json:"registry"`
	RepoPath      string `json:"repoPath"`
	Name          string `json:"name"`
	Tag           string `json:"tag"`
	ProductNumber string `json:"productNumber"`
}

// Reference returns registry/repoPath/name:tag.
func (m MetadataImage) Reference() Reference {
	return NewReference(m.Registry, m.RepoPath, m.Name, m.Tag)
}

// ImageFromMetadata builds the record declared by product metadata.
func ImageFromMetadata(m MetadataImage, sha256sum string) Image {
	return Image{
		ProductNumber:  NormalizeProductNumber(m.ProductNumber),
		ProductVersion: StripVersion(m.Tag),
		Image:          m.Reference().String(),
		ImageName:      m.Name,
		ImageTag:       m.Tag,
		SHA256Sum:      sha256sum,
	}
}

// ImageFromLabels builds the record declared by the image's own labels. The
// product version falls back to the tag when the image carries no version label.
func ImageFromLabels(ref Reference, labels map[string]string, sha256sum string) Image {
	version := labels[LabelProductVersion]
	if version == "" {
		version = ref.Tag
	}
	return Image{
		ProductNumber:  strings.Join(strings.Fields(labels[LabelProductNumber]), ""),
		ProductVersion: StripVersion(version),
		Image:          ref.String(),
		ImageName:      ref.Name(),
		ImageTag:       ref.Tag,
		SHA256Sum:      sha256sum,
	}
}
