// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package catalog

// builtin returns the stock application catalog. Path patterns use
// %USERNAME% as a placeholder for the current user and may contain glob
// wildcards for versioned install directories.
func builtin() *Catalog {
	return &Catalog{
		Categories: []string{
			"Web Browsers",
			"Messaging",
			"Media",
			"Imaging",
			"Documents",
			"Developer Tools",
			"Other",
			"Compression",
			"File Sharing",
		},
		Apps: []*App{
			{
				Name:        "Chrome",
				Category:    "Web Browsers",
				InstallerID: "chrome",
				RegistryKeys: []string{
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\chrome.exe`,
					`SOFTWARE\Google\Chrome`,
				},
				PathPatterns: []string{
					`C:\Program Files\Google\Chrome\Application\chrome.exe`,
					`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Google\Chrome\Application\chrome.exe`,
				},
			},
			{
				Name:        "Firefox",
				Category:    "Web Browsers",
				InstallerID: "firefox",
				RegistryKeys: []string{
					`SOFTWARE\Mozilla\Mozilla Firefox`,
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\firefox.exe`,
				},
				PathPatterns: []string{
					`C:\Program Files\Mozilla Firefox\firefox.exe`,
					`C:\Program Files (x86)\Mozilla Firefox\firefox.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Mozilla Firefox\firefox.exe`,
				},
			},
			{
				Name:        "Edge",
				Category:    "Web Browsers",
				InstallerID: "edge",
				RegistryKeys: []string{
					`SOFTWARE\Microsoft\Edge`,
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\msedge.exe`,
				},
				PathPatterns: []string{
					`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
					`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
				},
			},
			{
				Name:        "Zoom",
				Category:    "Messaging",
				InstallerID: "zoom",
				RegistryKeys: []string{
					`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\ZoomUMX`,
					`SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall\ZoomUMX`,
					`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\Zoom`,
				},
				PathPatterns: []string{
					`C:\Program Files\Zoom\bin\Zoom.exe`,
					`C:\Program Files (x86)\Zoom\bin\Zoom.exe`,
					`C:\Users\%USERNAME%\AppData\Roaming\Zoom\bin\Zoom.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Zoom\bin\Zoom.exe`,
				},
			},
			{
				Name:        "Discord",
				Category:    "Messaging",
				InstallerID: "discord",
				RegistryKeys: []string{
					`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\Discord`,
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\Discord.exe`,
				},
				PathPatterns: []string{
					`C:\Program Files\Discord\Discord.exe`,
					`C:\Program Files (x86)\Discord\Discord.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Discord\app-*\Discord.exe`,
				},
			},
			{
				Name:        "VLC",
				Category:    "Media",
				InstallerID: "vlc",
				RegistryKeys: []string{
					`SOFTWARE\VideoLAN\VLC`,
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\vlc.exe`,
				},
				PathPatterns: []string{
					`C:\Program Files\VideoLAN\VLC\vlc.exe`,
					`C:\Program Files (x86)\VideoLAN\VLC\vlc.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Programs\VideoLAN\VLC\vlc.exe`,
				},
			},
			{
				Name:        "Audacity",
				Category:    "Media",
				InstallerID: "audacity",
				RegistryKeys: []string{
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\audacity.exe`,
				},
				PathPatterns: []string{
					`C:\Program Files\Audacity\audacity.exe`,
					`C:\Program Files (x86)\Audacity\audacity.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Programs\Audacity\audacity.exe`,
				},
			},
			{
				Name:        "Blender",
				Category:    "Imaging",
				InstallerID: "blender",
				RegistryKeys: []string{
					`SOFTWARE\BlenderFoundation`,
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\blender.exe`,
				},
				PathPatterns: []string{
					`C:\Program Files\Blender Foundation\Blender *\blender.exe`,
					`C:\Program Files (x86)\Blender Foundation\Blender *\blender.exe`,
				},
			},
			{
				Name:        "Paint.NET",
				Category:    "Imaging",
				InstallerID: "paintdotnet",
				RegistryKeys: []string{
					`SOFTWARE\Paint.NET`,
				},
				PathPatterns: []string{
					`C:\Program Files\paint.net\PaintDotNet.exe`,
					`C:\Program Files (x86)\paint.net\PaintDotNet.exe`,
				},
			},
			{
				Name:        "GIMP",
				Category:    "Imaging",
				InstallerID: "gimp",
				RegistryKeys: []string{
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\gimp-2.10.exe`,
					`SOFTWARE\Classes\GIMP-2.10`,
					`SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall\GIMP-2.10`,
				},
				PathPatterns: []string{
					`C:\Program Files\GIMP 3\bin\gimp.exe`,
					`C:\Program Files (x86)\GIMP 3\bin\gimp.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Programs\GIMP 3\bin\gimp.exe`,
				},
			},
			{
				Name:        "LibreOffice",
				Category:    "Documents",
				InstallerID: "libreoffice",
				RegistryKeys: []string{
					`SOFTWARE\LibreOffice`,
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\soffice.exe`,
				},
				PathPatterns: []string{
					`C:\Program Files\LibreOffice\program\soffice.exe`,
					`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
				},
			},
			{
				Name:        "Python",
				Category:    "Developer Tools",
				InstallerID: "python",
				RegistryKeys: []string{
					`SOFTWARE\Python\PythonCore`,
				},
				PathPatterns: []string{
					`C:\Program Files\Python*\python.exe`,
					`C:\Program Files (x86)\Python*\python.exe`,
					`C:\Python*\python.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Programs\Python\Python*\python.exe`,
				},
			},
			{
				Name:        "FileZilla",
				Category:    "Developer Tools",
				InstallerID: "filezilla",
				RegistryKeys: []string{
					`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\FileZilla Client`,
				},
				PathPatterns: []string{
					`C:\Program Files\FileZilla FTP Client\filezilla.exe`,
					`C:\Program Files (x86)\FileZilla FTP Client\filezilla.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Programs\FileZilla FTP Client\filezilla.exe`,
				},
			},
			{
				Name:        "Notepad++",
				Category:    "Developer Tools",
				InstallerID: "notepadplusplus",
				RegistryKeys: []string{
					`SOFTWARE\Notepad++`,
				},
				PathPatterns: []string{
					`C:\Program Files\Notepad++\notepad++.exe`,
					`C:\Program Files (x86)\Notepad++\notepad++.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Programs\Notepad++\notepad++.exe`,
				},
			},
			{
				Name:        "WinSCP",
				Category:    "Developer Tools",
				InstallerID: "winscp",
				RegistryKeys: []string{
					`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\winscp3_is1`,
					`SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall\winscp3_is1`,
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\WinSCP.exe`,
				},
				PathPatterns: []string{
					`C:\Program Files\WinSCP\WinSCP.exe`,
					`C:\Program Files (x86)\WinSCP\WinSCP.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Programs\WinSCP\WinSCP.exe`,
				},
			},
			{
				Name:        "PuTTY",
				Category:    "Developer Tools",
				InstallerID: "putty",
				RegistryKeys: []string{
					`SOFTWARE\SimonTatham\PuTTY`,
				},
				PathPatterns: []string{
					`C:\Program Files\PuTTY\putty.exe`,
					`C:\Program Files (x86)\PuTTY\putty.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Programs\PuTTY\putty.exe`,
				},
			},
			{
				Name:        "Visual Studio Code",
				Category:    "Developer Tools",
				InstallerID: "vscode",
				RegistryKeys: []string{
					`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\{771FD6B0-FA20-440A-A002-3B3BAC16DC50}_is1`,
					`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\VSCode`,
					`SOFTWARE\Classes\Applications\Code.exe`,
				},
				PathPatterns: []string{
					`C:\Program Files\Microsoft VS Code\Code.exe`,
					`C:\Program Files (x86)\Microsoft VS Code\Code.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Programs\Microsoft VS Code\Code.exe`,
				},
			},
			{
				Name:        "Evernote",
				Category:    "Other",
				InstallerID: "evernote",
				RegistryKeys: []string{
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\Evernote.exe`,
				},
				PathPatterns: []string{
					`C:\Program Files\Evernote\Evernote.exe`,
					`C:\Program Files (x86)\Evernote\Evernote.exe`,
				},
			},
			{
				Name:        "Google Earth",
				Category:    "Other",
				InstallerID: "googleearth",
				RegistryKeys: []string{
					`SOFTWARE\Google\Google Earth Pro`,
					`SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\googleearth.exe`,
				},
				PathPatterns: []string{
					`C:\Program Files\Google\Google Earth Pro\client\googleearth.exe`,
					`C:\Program Files (x86)\Google\Google Earth Pro\client\googleearth.exe`,
				},
			},
			{
				Name:        "7-Zip",
				Category:    "Compression",
				InstallerID: "7zip",
				RegistryKeys: []string{
					`SOFTWARE\7-Zip`,
				},
				PathPatterns: []string{
					`C:\Program Files\7-Zip\7z.exe`,
					`C:\Program Files (x86)\7-Zip\7z.exe`,
				},
			},
			{
				Name:        "WinRAR",
				Category:    "Compression",
				InstallerID: "winrar",
				RegistryKeys: []string{
					`SOFTWARE\WinRAR`,
				},
				PathPatterns: []string{
					`C:\Program Files\WinRAR\WinRAR.exe`,
					`C:\Program Files (x86)\WinRAR\WinRAR.exe`,
				},
			},
			{
				Name:        "qBittorrent",
				Category:    "File Sharing",
				InstallerID: "qbittorrent",
				RegistryKeys: []string{
					`SOFTWARE\qBittorrent`,
				},
				PathPatterns: []string{
					`C:\Program Files\qBittorrent\qbittorrent.exe`,
					`C:\Program Files (x86)\qBittorrent\qbittorrent.exe`,
					`C:\Users\%USERNAME%\AppData\Local\Programs\qBittorrent\qbittorrent.exe`,
				},
			},
		},
	}
}
