package main

import (
	"fmt"
	"os"

	"campus-library/library"
)

// Seeds a fresh database with a small catalog and one borrower of each kind,
// handy for demos and manual testing.
func main() {
	fmt.Println("Cleaning up existing database files...")
	dbFiles := []string{"library.db", "library.db-shm", "library.db-wal"}
	for _, file := range dbFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}

	mgr, err := library.NewLibraryManager("library.db", 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	books := []library.BookInput{
		{ISBN: "978-0-13-468599-1", Title: "The Go Programming Language", Author: "Donovan & Kernighan", Publisher: "Addison-Wesley", Category: "Programming", Year: 2015, Pages: 380, Shelf: "A-1"},
		{ISBN: "978-0-201-61622-4", Title: "The Pragmatic Programmer", Author: "Hunt & Thomas", Publisher: "Addison-Wesley", Category: "Programming", Year: 1999, Pages: 352, Shelf: "A-2"},
		{ISBN: "978-0-262-03384-8", Title: "Introduction to Algorithms", Author: "Cormen et al.", Publisher: "MIT Press", Category: "Computer Science", Year: 2009, Pages: 1312, Shelf: "B-1"},
		{ISBN: "978-0-19-953556-9", Title: "Oxford Dictionary of English", Author: "Oxford", Publisher: "OUP", Category: "Reference", Year: 2010, Pages: 2069, Shelf: "R-1", Reference: true},
	}

	for _, in := range books {
		id, err := mgr.AddBook(in)
		if err != nil {
			fmt.Printf("ERROR adding %q: %v\n", in.Title, err)
			continue
		}
		fmt.Printf("Added book %q (ID %d)\n", in.Title, id)
	}

	memberID, err := mgr.RegisterMember(library.MemberInput{
		GivenNames: "Ana", FamilyNames: "Torres", Email: "ana.torres@campus.edu",
		Code: "M-2024-001", Program: "Systems Engineering", Term: 5, Password: "changeme",
	})
	if err != nil {
		fmt.Printf("ERROR adding member: %v\n", err)
	} else {
		fmt.Printf("Added member Ana Torres (ID %d)\n", memberID)
	}

	gradID, err := mgr.RegisterGraduate(library.GraduateInput{
		MemberInput: library.MemberInput{
			GivenNames: "Luis", FamilyNames: "Mora", Email: "luis.mora@campus.edu",
			Code: "M-2019-042", Program: "Industrial Engineering", Password: "changeme",
		},
		Degree: "Industrial Engineer", GraduatedOn: "2023-12-15",
	})
	if err != nil {
		fmt.Printf("ERROR adding graduate: %v\n", err)
	} else {
		fmt.Printf("Added graduate Luis Mora (ID %d)\n", gradID)
	}

	staffID, err := mgr.RegisterStaff(library.StaffInput{
		GivenNames: "Carla", FamilyNames: "Reyes", Email: "carla.reyes@campus.edu",
		EmployeeCode: "E-0117", Department: "Computer Science", Specialty: "Databases",
		Contract: "full-time", AcademicTitle: "PhD", Experience: 12, Password: "changeme",
	})
	if err != nil {
		fmt.Printf("ERROR adding staff: %v\n", err)
	} else {
		fmt.Printf("Added staff Carla Reyes (ID %d)\n", staffID)
	}

	if memberID != 0 {
		loan, err := mgr.CreateLoan(1, memberID)
		if err != nil {
			fmt.Printf("ERROR creating demo loan: %v\n", err)
		} else {
			fmt.Printf("Created demo loan %d, due %s\n", loan.ID, loan.DueDate.Format("2006-01-02"))
		}
	}

	fmt.Println("\nSeed complete.")
}
