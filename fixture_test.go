package tokenstream

// An installer manifest, used as the reference fixture across tests.

type OsType uint8

const (
	OsAny OsType = iota
	OsWindows
	OsMac
	OsLinux
	OsIos
	OsAndroid
	OsXboxOne
	OsPS4
)

type CompressionType uint8

const (
	CompressionDefault CompressionType = iota
	CompressionNone
	CompressionZip
	CompressionBZ2
	CompressionLZMA
	CompressionLZO
)

type InstallCondition uint8

const (
	InstallIfDiffers InstallCondition = iota
	InstallIfInitial
	InstallIfAbsent
	InstallIfNewer
)

type FileData struct {
	Name             string
	Priority         int32
	Timestamp        uint32
	CompressedSize   uint32
	UncompressedSize uint32
	CRC              uint32
	Compression      CompressionType
	UninstallOnly    bool
	InstallIf        InstallCondition
	TestCondition    string
	Languages        []string
	OS               []OsType
	Executable       bool
	Link             string
	Redistributable  bool
	URI              string
	Offset           uint64
}

var fileMap = NewTokenMap(
	StringField(0, func(f *FileData) *string { return &f.Name }),
	ScalarField(1, func(f *FileData) *int32 { return &f.Priority }),
	ScalarField(2, func(f *FileData) *uint32 { return &f.Timestamp }),
	ScalarField(3, func(f *FileData) *uint32 { return &f.CompressedSize }),
	ScalarField(4, func(f *FileData) *uint32 { return &f.UncompressedSize }),
	ScalarField(5, func(f *FileData) *uint32 { return &f.CRC }),
	ScalarField(6, func(f *FileData) *CompressionType { return &f.Compression }),
	ScalarField(7, func(f *FileData) *bool { return &f.UninstallOnly }),
	ScalarField(8, func(f *FileData) *InstallCondition { return &f.InstallIf }),
	StringField(9, func(f *FileData) *string { return &f.TestCondition }),
	SliceField(10, func(f *FileData) *[]string { return &f.Languages }),
	SliceField(11, func(f *FileData) *[]OsType { return &f.OS }),
	ScalarField(12, func(f *FileData) *bool { return &f.Executable }),
	StringField(13, func(f *FileData) *string { return &f.Link }),
	ScalarField(14, func(f *FileData) *bool { return &f.Redistributable }),
	StringField(15, func(f *FileData) *string { return &f.URI }),
	ScalarField(16, func(f *FileData) *uint64 { return &f.Offset }),
)

func (f *FileData) MarshalTokenStream(e *Encoder) { fileMap.Write(e, f) }

func (f *FileData) UnmarshalTokenStream(d *Decoder) {
	*f = FileData{}
	fileMap.Read(d, f)
}

// FolderData is written by hand rather than through a TokenMap.
type FolderData struct {
	Path        string
	MaxPriority int32
	OS          []OsType
	OnCondition string
	Folders     []FolderData
	Files       []FileData
}

const (
	folderPath Token = iota + 1
	folderMaxPriority
	folderOS
	folderOnCondition
	folderFolders
	folderFiles
)

func pointers[V any](s []V) []*V {
	out := make([]*V, len(s))
	for i := range s {
		out[i] = &s[i]
	}
	return out
}

func (f *FolderData) MarshalTokenStream(e *Encoder) {
	e.PutString(folderPath, f.Path)
	e.PutInt32(folderMaxPriority, f.MaxPriority)
	PutSlice(e, folderOS, f.OS)
	e.PutString(folderOnCondition, f.OnCondition)
	PutObjectSlice(e, folderFolders, pointers(f.Folders))
	PutObjectSlice(e, folderFiles, pointers(f.Files))
}

func (f *FolderData) UnmarshalTokenStream(d *Decoder) {
	*f = FolderData{}
	for !d.AtEnd() {
		switch d.NextToken() {
		case folderPath:
			f.Path = d.String()
		case folderMaxPriority:
			f.MaxPriority = d.Int32()
		case folderOS:
			f.OS = ReadSlice(d, f.OS)
		case folderOnCondition:
			f.OnCondition = d.String()
		case folderFolders:
			f.Folders = ReadObjectSlice(d, f.Folders)
		case folderFiles:
			f.Files = ReadObjectSlice(d, f.Files)
		}
	}
}

type ExternalPackageData struct {
	URI              string
	LaunchParameters string
	ChildPath        string
	OS               []OsType
	Vars             map[string]string
	Folders          []FolderData
}

var externalMap = NewTokenMap(
	StringField(0, func(x *ExternalPackageData) *string { return &x.URI }),
	StringField(1, func(x *ExternalPackageData) *string { return &x.LaunchParameters }),
	StringField(2, func(x *ExternalPackageData) *string { return &x.ChildPath }),
	SliceField(3, func(x *ExternalPackageData) *[]OsType { return &x.OS }),
	MapField(4, func(x *ExternalPackageData) *map[string]string { return &x.Vars }),
	ObjectSliceField(5, func(x *ExternalPackageData) *[]FolderData { return &x.Folders }),
)

func (x *ExternalPackageData) MarshalTokenStream(e *Encoder) { externalMap.Write(e, x) }

func (x *ExternalPackageData) UnmarshalTokenStream(d *Decoder) {
	*x = ExternalPackageData{}
	externalMap.Read(d, x)
}

type RequirementsData struct {
	MinimumRAM       uint32
	MinimumOSVersion float32
}

var requirementsMap = NewTokenMap(
	ScalarField(0, func(r *RequirementsData) *uint32 { return &r.MinimumRAM }),
	ScalarField(1, func(r *RequirementsData) *float32 { return &r.MinimumOSVersion }),
)

func (r *RequirementsData) MarshalTokenStream(e *Encoder) { requirementsMap.Write(e, r) }

func (r *RequirementsData) UnmarshalTokenStream(d *Decoder) {
	*r = RequirementsData{}
	requirementsMap.Read(d, r)
}

type PackageData struct {
	Name             string
	PackagerVersion  uint16
	Timestamp        uint32
	Description      string
	Reserve          int32
	PackageSize      uint32
	FileCount        uint32
	Executable       string
	WorkingDirectory string
	LaunchParameters string
	ChildPath        string
	IsWrapper        bool
	Languages        []string
	Compression      CompressionType
	Vars             map[string]string
	Requirements     []RequirementsData
	ExternalPackages []ExternalPackageData
	Folders          []FolderData
}

const (
	pkgName Token = iota
	pkgPackagerVersion
	pkgTimestamp
	pkgDescription
	pkgReserve
	pkgPackageSize
	pkgFileCount
	pkgExecutable
	pkgWorkingDirectory
	pkgLaunchParameters
	pkgChildPath
	pkgIsWrapper
	pkgLanguages
	pkgCompression
	pkgVars
	pkgRequirements
	pkgExternalPackages
	pkgFolders
)

func newPackageData() PackageData {
	return PackageData{WorkingDirectory: ".", Compression: CompressionLZMA}
}

var packageMap = NewTokenMap(
	StringField(pkgName, func(p *PackageData) *string { return &p.Name }),
	ScalarField(pkgPackagerVersion, func(p *PackageData) *uint16 { return &p.PackagerVersion }),
	ScalarField(pkgTimestamp, func(p *PackageData) *uint32 { return &p.Timestamp }),
	StringField(pkgDescription, func(p *PackageData) *string { return &p.Description }),
	ScalarField(pkgReserve, func(p *PackageData) *int32 { return &p.Reserve }),
	ScalarField(pkgPackageSize, func(p *PackageData) *uint32 { return &p.PackageSize }),
	ScalarField(pkgFileCount, func(p *PackageData) *uint32 { return &p.FileCount }),
	StringField(pkgExecutable, func(p *PackageData) *string { return &p.Executable }),
	StringFieldDefault(pkgWorkingDirectory, func(p *PackageData) *string { return &p.WorkingDirectory }, "."),
	StringField(pkgLaunchParameters, func(p *PackageData) *string { return &p.LaunchParameters }),
	StringField(pkgChildPath, func(p *PackageData) *string { return &p.ChildPath }),
	ScalarField(pkgIsWrapper, func(p *PackageData) *bool { return &p.IsWrapper }),
	SliceField(pkgLanguages, func(p *PackageData) *[]string { return &p.Languages }),
	ScalarFieldDefault(pkgCompression, func(p *PackageData) *CompressionType { return &p.Compression }, CompressionLZMA),
	MapField(pkgVars, func(p *PackageData) *map[string]string { return &p.Vars }),
	ObjectSliceField(pkgRequirements, func(p *PackageData) *[]RequirementsData { return &p.Requirements }),
	ObjectSliceField(pkgExternalPackages, func(p *PackageData) *[]ExternalPackageData { return &p.ExternalPackages }),
	ObjectSliceField(pkgFolders, func(p *PackageData) *[]FolderData { return &p.Folders }),
)

func (p *PackageData) MarshalTokenStream(e *Encoder) { packageMap.Write(e, p) }

func (p *PackageData) UnmarshalTokenStream(d *Decoder) {
	*p = newPackageData()
	packageMap.Read(d, p)
}

type SignatureAlgorithm int32

const (
	AlgorithmSHA1 SignatureAlgorithm = iota
	AlgorithmSHA256
)

// SecurePackageData nests its base record under token 0.
type SecurePackageData struct {
	PackageData
	Signature []byte
	Algorithm SignatureAlgorithm
}

var securePackageMap = NewTokenMap(
	BaseField(0, packageMap, func(s *SecurePackageData) *PackageData { return &s.PackageData }),
	BytesField(1, func(s *SecurePackageData) *[]byte { return &s.Signature }),
	ScalarField(2, func(s *SecurePackageData) *SignatureAlgorithm { return &s.Algorithm }),
)

func (s *SecurePackageData) MarshalTokenStream(e *Encoder) { securePackageMap.Write(e, s) }

func (s *SecurePackageData) UnmarshalTokenStream(d *Decoder) {
	*s = SecurePackageData{PackageData: newPackageData()}
	securePackageMap.Read(d, s)
}

func testPackage() SecurePackageData {
	p := SecurePackageData{PackageData: newPackageData()}
	p.Name = "Quake"
	p.PackagerVersion = 1
	p.Timestamp = 1000
	p.Description = "The best game ever!"
	p.Reserve = -0x88
	p.FileCount = 0xC0
	p.Vars = map[string]string{
		"root":   `c:\example\game`,
		"cert":   "Mycert.cert",
		"repeat": "",
		"":       "",
	}
	p.Languages = []string{"en", "", "de"}
	p.Requirements = []RequirementsData{{MinimumRAM: 1000, MinimumOSVersion: 10.1}}
	p.Folders = []FolderData{{
		Path: "bin",
		Files: []FileData{
			{
				Name:             "Quake.exe",
				Timestamp:        0x12345678,
				CompressedSize:   10000,
				UncompressedSize: 100000,
				CRC:              0x87654321,
				Languages:        []string{"de", "en"},
				OS:               []OsType{OsWindows},
				Executable:       true,
			},
			{
				Name:             "Quake2.exe",
				Timestamp:        0x12345679,
				CompressedSize:   100000,
				UncompressedSize: 1000000,
				CRC:              0x87654343,
				OS:               []OsType{OsWindows, OsMac},
				Executable:       true,
			},
		},
	}}
	return p
}

// testPackageGeneric builds the same manifest at run time. Vars are written
// in insertion order and requirements as a single record.
func testPackageGeneric() *Generic {
	pkg := new(Generic).
		Add(pkgName, "Quake").
		Add(pkgPackagerVersion, 1).
		Add(pkgTimestamp, 1000).
		Add(pkgDescription, "The best game ever!").
		Add(pkgReserve, -0x88).
		Add(pkgFileCount, uint32(0xC0)).
		AddDefault(pkgCompression, CompressionLZMA, CompressionLZMA)

	vars := []*Generic{
		new(Generic).Add(0, "root").Add(1, `c:\example\game`),
		new(Generic).Add(0, "cert").Add(1, "Mycert.cert"),
		new(Generic).Add(0, "repeat"),
		new(Generic),
	}
	pkg.Add(pkgVars, vars)
	pkg.Add(pkgLanguages, []string{"en", "", "de"})
	pkg.Add(pkgRequirements, new(Generic).Add(1, float32(10.1)).Add(0, 1000))

	files := []*Generic{
		new(Generic).
			Add(0, "Quake.exe").
			Add(2, 0x12345678).
			Add(3, 10000).
			Add(4, 100000).
			Add(5, uint32(0x87654321)).
			Add(10, []string{"en", "de"}).
			Add(11, []OsType{OsWindows}).
			Add(12, true),
		new(Generic).
			Add(0, "Quake2.exe").
			Add(2, 0x12345679).
			Add(3, 100000).
			Add(4, 1000000).
			Add(5, uint32(0x87654343)).
			Add(11, []OsType{OsWindows, OsMac}).
			Add(12, true),
	}
	folder := new(Generic).Add(folderPath, "bin").Add(folderFiles, files)
	pkg.Add(pkgFolders, []*Generic{folder})

	return new(Generic).Add(0, pkg)
}
